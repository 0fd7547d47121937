package jobs

import (
	"time"

	"github.com/adhocore/gronx"
	"github.com/fixkme/etimer/clock"
	"github.com/fixkme/etimer/config"
	"github.com/fixkme/etimer/mlog"
)

// Scheduler 作业挂载的定时器循环, *clock.Loop 满足该接口
type Scheduler interface {
	AddTimer(t *clock.Timer, delay time.Duration) error
	DelTimer(t *clock.Timer)
}

var _ Scheduler = (*clock.Loop)(nil)

// Job 一个具名作业, 持有自己的定时器, 到期后按period或cron重新挂载自己
type Job struct {
	conf  config.JobConfig
	timer *clock.Timer
	sched Scheduler
	now   func() time.Time
	tick  time.Time // cron作业当前挂载对应的时刻
	fired int
}

func newJob(conf config.JobConfig, now func() time.Time) *Job {
	j := &Job{conf: conf, now: now}
	j.timer = clock.NewTimer(j.onFire, j)
	return j
}

func (j *Job) Name() string {
	return j.conf.Name
}

func (j *Job) Config() config.JobConfig {
	return j.conf
}

// Fired 已触发次数, 只能在循环goroutine里或循环结束后读取
func (j *Job) Fired() int {
	return j.fired
}

func (j *Job) Armed() bool {
	return j.timer.Armed()
}

func (j *Job) Finished() bool {
	return j.conf.Count > 0 && j.fired >= j.conf.Count
}

// Arm 挂到s上, 已挂载的会先移除
func (j *Job) Arm(s Scheduler) error {
	d, tick, err := j.firstDelay()
	if err != nil {
		return err
	}
	j.sched = s
	j.tick = tick
	return s.AddTimer(j.timer, d)
}

func (j *Job) Disarm() {
	if j.sched != nil {
		j.sched.DelTimer(j.timer)
	}
}

// NextFire 未挂载时按配置推算首次触发时间
func (j *Job) NextFire() (time.Time, error) {
	d, _, err := j.firstDelay()
	if err != nil {
		return time.Time{}, err
	}
	return j.now().Add(d), nil
}

// firstDelay cron作业同时返回对应的时刻
func (j *Job) firstDelay() (time.Duration, time.Time, error) {
	now := j.now()
	delay := time.Duration(j.conf.Delay) * time.Millisecond
	if len(j.conf.Cron) == 0 {
		return delay, time.Time{}, nil
	}
	tick, err := gronx.NextTickAfter(j.conf.Cron, now.Add(delay), false)
	if err != nil {
		return 0, time.Time{}, err
	}
	return tick.Sub(now), tick, nil
}

// nextTick 从上一个时刻往后推, 不能从当前时间推:
// 队列按时间源单位向下取整, 定时器可能在时刻之前不到1个单位就触发
func (j *Job) nextTick() (time.Duration, error) {
	tick, err := gronx.NextTickAfter(j.conf.Cron, j.tick, false)
	if err != nil {
		return 0, err
	}
	j.tick = tick
	d := tick.Sub(j.now())
	if d < 0 {
		d = 0
	}
	return d, nil
}

func (j *Job) onFire(t *clock.Timer) {
	j.fired++
	mlog.Infof("job %s fired, count=%d timer=%s", j.conf.Name, j.fired, t)
	if j.Finished() {
		mlog.Infof("job %s finished after %d runs", j.conf.Name, j.fired)
		return
	}

	var delay time.Duration
	switch {
	case len(j.conf.Cron) != 0:
		d, err := j.nextTick()
		if err != nil {
			mlog.Errorf("job %s next cron tick: %v", j.conf.Name, err)
			return
		}
		delay = d
	case j.conf.Period > 0:
		delay = time.Duration(j.conf.Period) * time.Millisecond
	default:
		return
	}
	if err := j.sched.AddTimer(t, delay); err != nil {
		mlog.Errorf("job %s rearm failed: %v", j.conf.Name, err)
	}
}
