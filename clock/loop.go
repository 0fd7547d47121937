package clock

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	DefaultQuantum   = 500 * time.Microsecond
	defaultCeilingMs = 500
)

type Options struct {
	Quantum      time.Duration // 已到期时使用的最小定时, 0会解除系统定时器所以不能用0
	Ceiling      uint64        // 单次睡眠上限(时间源单位), 毫秒默认500, 秒默认1
	LockOSThread bool          // 运行期间绑定当前OS线程
}

func (o *Options) fill(unit time.Duration) {
	if o.Quantum <= 0 {
		o.Quantum = DefaultQuantum
	}
	if o.Ceiling == 0 {
		if unit >= time.Second {
			o.Ceiling = 1
		} else {
			o.Ceiling = uint64(defaultCeilingMs * time.Millisecond / unit)
		}
	}
}

type Stats struct {
	Iterations  uint64 // 进入等待的轮数
	Wakes       uint64
	Spurious    uint64 // 被唤醒但alarm未置位
	Fired       uint64
	ArmFailures uint64
}

// Loop 持有队列, alarm 和 gate 的定时器上下文.
// 队列只能在运行Start的goroutine里修改(Start之前或handler内部).
type Loop struct {
	id    uuid.UUID
	src   TimeSource
	queue *Queue
	gate  Gate
	alarm Alarm
	opts  Options

	running     atomic.Bool
	iterations  atomic.Uint64
	wakes       atomic.Uint64
	spurious    atomic.Uint64
	fired       atomic.Uint64
	armFailures atomic.Uint64

	// 设置系统定时器失败时的退化睡眠
	sleep func(ctx context.Context, d time.Duration) error
}

func New(src TimeSource, gate Gate, opts Options) *Loop {
	opts.fill(src.Unit())
	return &Loop{
		id:    uuid.New(),
		src:   src,
		queue: NewQueue(src),
		gate:  gate,
		opts:  opts,
		sleep: sleepCtx,
	}
}

func (l *Loop) ID() uuid.UUID {
	return l.id
}

func (l *Loop) Queue() *Queue {
	return l.queue
}

func (l *Loop) Options() Options {
	return l.opts
}

func (l *Loop) AddTimer(t *Timer, delay time.Duration) error {
	return l.queue.Add(t, delay)
}

func (l *Loop) DelTimer(t *Timer) {
	l.queue.Del(t)
}

func (l *Loop) Stats() Stats {
	return Stats{
		Iterations:  l.iterations.Load(),
		Wakes:       l.wakes.Load(),
		Spurious:    l.spurious.Load(),
		Fired:       l.fired.Load(),
		ArmFailures: l.armFailures.Load(),
	}
}

// Start 运行定时器循环, 阻塞直到队列为空(或ctx结束).
// 队列为空即退出: 空闲期间也需要服务的调用方要在外部重新Start.
// gate安装失败属于启动失败, 直接返回 errs.Startup, 不重试.
func (l *Loop) Start(ctx context.Context) (err error) {
	if !l.running.CompareAndSwap(false, true) {
		return errs.Running.Printf("loop %s", l.id)
	}
	defer l.running.Store(false)

	if l.opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	if err = l.gate.Install(&l.alarm); err != nil {
		if !errors.Is(err, errs.Startup) {
			err = errs.Startup.Wrap(err)
		}
		mlog.Errorf("clock loop %s install gate failed: %v", l.id, err)
		return err
	}
	defer func() {
		err = multierr.Append(err, l.gate.Close())
	}()
	// 上一次Start被ctx中断时可能留下已置位的alarm
	l.alarm.Clear()

	mlog.Infof("clock loop %s started, unit=%v quantum=%v ceiling=%d pending=%d",
		l.id, l.src.Unit(), l.opts.Quantum, l.opts.Ceiling, l.queue.Len())
	for {
		delay := l.queue.EarliestDelay()
		if delay == Infinite {
			mlog.Infof("clock loop %s no pending timer, stopped", l.id)
			return nil
		}
		l.iterations.Add(1)

		wait := l.window(delay)
		if armErr := l.gate.Arm(wait); armErr != nil {
			// 不致命, 本轮退化成普通睡眠, 下一轮重新设置
			l.armFailures.Add(1)
			mlog.Errorf("clock loop %s arm %v failed, retry next round: %v", l.id, wait, armErr)
			if err = l.sleep(ctx, wait); err != nil {
				return err
			}
			l.alarm.Raise()
		} else if err = l.gate.Wait(ctx); err != nil {
			mlog.Infof("clock loop %s interrupted: %v", l.id, err)
			return err
		}
		l.wakes.Add(1)

		if l.alarm.Fired() {
			n := l.queue.ExpireDue()
			l.fired.Add(uint64(n))
			l.alarm.Clear()
		} else {
			l.spurious.Add(1)
		}
	}
}

// window 计算本轮定时时长: 已到期用最小定时, 否则截断到上限
func (l *Loop) window(delay uint64) time.Duration {
	if delay == 0 {
		return l.opts.Quantum
	}
	if delay > l.opts.Ceiling {
		delay = l.opts.Ceiling
	}
	return toDuration(delay, l.src.Unit())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
