package errs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErr(t *testing.T) {
	err := ArmFailed.Printf("delay=%d", 500)
	assert.Equal(t, "ARM_TIMER_FAILED,delay=500", err.Error())
	assert.True(t, errors.Is(err, ArmFailed))
	assert.False(t, errors.Is(err, Startup))
	assert.Equal(t, int32(ErrCode_ArmFailed), err.Code())
}

func TestWrap(t *testing.T) {
	err := Startup.Wrap(os.ErrPermission).Print("SIGALRM")
	require.True(t, errors.Is(err, Startup))
	assert.True(t, errors.Is(err, os.ErrPermission))

	var ce CodeError = WrapError(err)
	assert.Equal(t, int32(ErrCode_Startup), ce.Code())
	assert.Equal(t, int32(ErrCode_Unknown), WrapError(os.ErrClosed).Code())
	assert.Nil(t, WrapError(nil))
}
