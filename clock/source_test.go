package clock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseResolution(t *testing.T) {
	r, ok := ParseResolution("")
	assert.True(t, ok)
	assert.Equal(t, Millisecond, r)

	r, ok = ParseResolution("S")
	assert.True(t, ok)
	assert.Equal(t, Second, r)
	assert.Equal(t, time.Second, r.Unit())
	assert.Equal(t, "s", r.String())

	_, ok = ParseResolution("ns")
	assert.False(t, ok)
}

func TestWallClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 3, 750*int(time.Millisecond), time.UTC)
	ms := NewWallClock(Millisecond)
	ms.now = func() time.Time { return at }
	assert.Equal(t, uint64(at.UnixMilli()), ms.Now())

	sec := NewWallClock(Second)
	sec.now = func() time.Time { return at }
	assert.Equal(t, uint64(at.Unix()), sec.Now())

	// 1970年之前按0处理
	sec.now = func() time.Time { return time.Unix(-5, 0) }
	assert.Equal(t, uint64(0), sec.Now())
}

func TestUnitConversion(t *testing.T) {
	assert.Equal(t, uint64(0), toUnits(-time.Second, time.Millisecond))
	assert.Equal(t, uint64(1), toUnits(1999*time.Millisecond, time.Second))
	assert.Equal(t, uint64(0), toUnits(500*time.Microsecond, time.Millisecond))
	assert.Equal(t, 3*time.Second, toDuration(3, time.Second))
	assert.Equal(t, time.Duration(math.MaxInt64), toDuration(math.MaxUint64, time.Millisecond))
}

func TestTimerCompare(t *testing.T) {
	a := &Timer{key: 5, seq: 2}
	b := &Timer{key: 5, seq: 3}
	c := &Timer{key: 4, seq: 9}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, a.Compare(c))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, "timer(-)", a.String())
}
