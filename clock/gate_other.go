//go:build !linux

package clock

import (
	"context"
	"runtime"
	"time"

	"github.com/fixkme/etimer/errs"
)

// SignalGate 依赖 setitimer(ITIMER_REAL) 和 SIGALRM, 其他平台安装时直接失败,
// 需要改用 CountdownGate.
type SignalGate struct{}

var _ Gate = (*SignalGate)(nil)

func NewSignalGate(wakeSignals ...string) (*SignalGate, error) {
	return &SignalGate{}, nil
}

func (g *SignalGate) Install(a *Alarm) error {
	return errs.Startup.Printf("interval signal unsupported on %s", runtime.GOOS)
}

func (g *SignalGate) Arm(d time.Duration) error {
	return errs.ArmFailed.Print("gate not installed")
}

func (g *SignalGate) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (g *SignalGate) Close() error {
	return nil
}
