package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddUint64(t *testing.T) {
	v, ok := AddUint64(1, 2, math.MaxUint64)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v)

	limit := uint64(math.MaxUint64 - 1)
	v, ok = AddUint64(math.MaxUint64-10, 20, limit)
	assert.False(t, ok)
	assert.Equal(t, limit, v)

	v, ok = AddUint64(limit-5, 5, limit)
	assert.True(t, ok)
	assert.Equal(t, limit, v)

	v, ok = AddUint64(math.MaxUint64, 0, limit)
	assert.False(t, ok)
	assert.Equal(t, limit, v)
}

func TestAddUint64AtLimit(t *testing.T) {
	v, ok := AddUint64(100, 0, 100)
	assert.True(t, ok)
	assert.Equal(t, uint64(100), v)

	v, ok = AddUint64(100, 1, 100)
	assert.False(t, ok)
	assert.Equal(t, uint64(100), v)
}
