//go:build linux

package clock

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
	"golang.org/x/sys/unix"
)

// ITIMER_REAL 和 SIGALRM 是进程级资源, 同一时间只允许一个SignalGate持有
var sigalrmOwned atomic.Bool

// SignalGate 用 setitimer(ITIMER_REAL) + SIGALRM 实现的Gate.
//
// Go runtime 的信号处理函数只是把信号放进通道, 通道容量为1:
// 循环计算延迟, 遍历队列期间到达的信号留在通道里, 只有 Wait 里才会被取出,
// 相当于在挂起之外屏蔽信号, 挂起期间解除屏蔽.
type SignalGate struct {
	alarm     *Alarm
	alarms    chan os.Signal
	wakes     chan os.Signal
	wakeSigs  []os.Signal
	installed bool
}

var _ Gate = (*SignalGate)(nil)

// NewSignalGate wakeSignals 为额外的唤醒信号(如 "SIGHUP", "USR1"), 只结束挂起, 不触发到期处理
func NewSignalGate(wakeSignals ...string) (*SignalGate, error) {
	g := &SignalGate{}
	for _, name := range wakeSignals {
		sig, err := parseSignal(name)
		if err != nil {
			return nil, err
		}
		g.wakeSigs = append(g.wakeSigs, sig)
	}
	return g, nil
}

func parseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, errs.BadConfig.Printf("unknown signal %q", name)
	}
	if sig == unix.SIGALRM || sig == unix.SIGKILL || sig == unix.SIGSTOP {
		return 0, errs.BadConfig.Printf("signal %s cannot be a wake signal", name)
	}
	return sig, nil
}

func (g *SignalGate) Install(a *Alarm) error {
	if a == nil {
		return errs.Startup.Print("nil alarm")
	}
	if g.installed {
		return errs.Startup.Print("signal gate already installed")
	}
	if !sigalrmOwned.CompareAndSwap(false, true) {
		return errs.Startup.Print("SIGALRM owned by another gate")
	}
	// 清掉残留的定时器, 同时确认setitimer可用
	if _, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{}); err != nil {
		sigalrmOwned.Store(false)
		return errs.Startup.Wrap(err)
	}

	g.alarm = a
	g.alarms = make(chan os.Signal, 1)
	signal.Notify(g.alarms, unix.SIGALRM)
	if len(g.wakeSigs) > 0 {
		g.wakes = make(chan os.Signal, 1)
		signal.Notify(g.wakes, g.wakeSigs...)
	}
	g.installed = true
	return nil
}

func (g *SignalGate) Arm(d time.Duration) error {
	if !g.installed {
		return errs.ArmFailed.Print("gate not installed")
	}
	if d <= 0 {
		return errs.ArmFailed.Printf("delay=%v", d)
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if tv.Sec == 0 && tv.Usec == 0 {
		// 0会解除定时器
		tv.Usec = 1
	}
	if _, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{Value: tv}); err != nil {
		return errs.ArmFailed.Wrap(err)
	}
	return nil
}

// Wait wakes通道为nil时对应的case永远不会就绪
func (g *SignalGate) Wait(ctx context.Context) error {
	select {
	case sig := <-g.alarms:
		g.dispatch(sig)
	case sig := <-g.wakes:
		g.dispatch(sig)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (g *SignalGate) dispatch(sig os.Signal) {
	switch sig {
	case unix.SIGALRM:
		g.alarm.Raise()
	default:
		if mlog.IsLevelEnabled(mlog.DebugLevel) {
			mlog.Debugf("clock signal gate woken by %v", sig)
		}
	}
}

func (g *SignalGate) Close() error {
	if !g.installed {
		return nil
	}
	_, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{})
	signal.Stop(g.alarms)
	if g.wakes != nil {
		signal.Stop(g.wakes)
	}
	g.installed = false
	g.alarm = nil
	sigalrmOwned.Store(false)
	return err
}
