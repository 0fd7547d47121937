package clock

import (
	"context"
	"sync"
	"time"

	"github.com/fixkme/etimer/errs"
)

// 进程内唯一的定时器循环, 用SIGALRM驱动
var (
	builtinLoop *Loop
	once        sync.Once
	initErr     error
)

// Init 只有第一次调用生效, 之后返回第一次的结果
func Init(res Resolution, opts Options, wakeSignals ...string) error {
	once.Do(func() {
		gate, err := NewSignalGate(wakeSignals...)
		if err != nil {
			initErr = err
			return
		}
		builtinLoop = New(NewWallClock(res), gate, opts)
	})
	return initErr
}

// Default 未Init时返回nil
func Default() *Loop {
	return builtinLoop
}

func Start(ctx context.Context) error {
	if builtinLoop == nil {
		return errs.NotInit
	}
	return builtinLoop.Start(ctx)
}

func AddTimer(t *Timer, delay time.Duration) error {
	if builtinLoop == nil {
		return errs.NotInit
	}
	return builtinLoop.AddTimer(t, delay)
}

func DelTimer(t *Timer) {
	if builtinLoop == nil {
		return
	}
	builtinLoop.DelTimer(t)
}
