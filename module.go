package main

import (
	"context"
	"errors"

	"github.com/fixkme/etimer/app"
	"github.com/fixkme/etimer/clock"
	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
)

// timerModule 在app里运行定时器循环, 循环结束(队列为空)时停止整个app
type timerModule struct {
	loop   *clock.Loop
	app    *app.App
	ctx    context.Context
	cancel context.CancelFunc
	err    error
	fatalf func(format string, v ...any)
}

func newTimerModule(loop *clock.Loop, a *app.App) *timerModule {
	return &timerModule{loop: loop, app: a, fatalf: mlog.Fatalf}
}

func (m *timerModule) OnInit() error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return nil
}

func (m *timerModule) Run() {
	defer m.app.Stop()
	err := m.loop.Start(m.ctx)
	st := m.loop.Stats()
	switch {
	case errors.Is(err, errs.Startup):
		m.err = err
		m.fatalf("timer loop %s startup failed: %v", m.loop.ID(), err)
	case err != nil && !errors.Is(err, context.Canceled):
		m.err = err
		mlog.Errorf("timer loop %s exit: %v", m.loop.ID(), err)
	default:
		mlog.Infof("timer loop %s done, fired=%d wakes=%d spurious=%d arm_failures=%d",
			m.loop.ID(), st.Fired, st.Wakes, st.Spurious, st.ArmFailures)
	}
}

func (m *timerModule) Destroy() {
	m.cancel()
}

func (m *timerModule) Name() string {
	return "timer"
}

// Err 循环的退出错误, app.Run 返回后读取
func (m *timerModule) Err() error {
	return m.err
}
