package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fixkme/etimer/errs"
)

// Alarm 通知上下文与主循环之间唯一的单bit消息.
// 只有通知方Raise, 只有主循环在观察到之后Clear.
type Alarm struct {
	fired atomic.Bool
}

func (a *Alarm) Raise() {
	a.fired.Store(true)
}

func (a *Alarm) Fired() bool {
	return a.fired.Load()
}

func (a *Alarm) Clear() {
	a.fired.Store(false)
}

// Gate 一次性系统定时器加挂起原语.
// Install 只安装一条通知路径, 它唯一的作用是 a.Raise();
// 循环在查询队列期间收到的通知必须保留到下一次 Wait, 不能丢也不能重入.
type Gate interface {
	Install(a *Alarm) error
	// Arm 单次定时, d必须大于0
	Arm(d time.Duration) error
	// Wait 挂起直到任意通知到达或ctx结束
	Wait(ctx context.Context) error
	Close() error
}

// CountdownGate 不依赖系统信号的实现, 用time.AfterFunc倒计时
type CountdownGate struct {
	alarm *Alarm
	timer *time.Timer
	wake  chan struct{}
}

var _ Gate = (*CountdownGate)(nil)

func NewCountdownGate() *CountdownGate {
	return &CountdownGate{wake: make(chan struct{}, 1)}
}

func (g *CountdownGate) Install(a *Alarm) error {
	if a == nil {
		return errs.Startup.Print("nil alarm")
	}
	if g.alarm != nil {
		return errs.Startup.Print("countdown gate already installed")
	}
	g.alarm = a
	return nil
}

func (g *CountdownGate) Arm(d time.Duration) error {
	if g.alarm == nil {
		return errs.ArmFailed.Print("gate not installed")
	}
	if d <= 0 {
		return errs.ArmFailed.Printf("delay=%v", d)
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	a, wake := g.alarm, g.wake
	g.timer = time.AfterFunc(d, func() {
		a.Raise()
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	return nil
}

func (g *CountdownGate) Wait(ctx context.Context) error {
	select {
	case <-g.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *CountdownGate) Close() error {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.alarm = nil
	select {
	case <-g.wake:
	default:
	}
	return nil
}
