package main

import (
	"context"
	"fmt"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fixkme/etimer/app"
	"github.com/fixkme/etimer/clock"
	"github.com/fixkme/etimer/config"
	"github.com/fixkme/etimer/jobs"
	"github.com/fixkme/etimer/mlog"
	"github.com/urfave/cli"
)

func loadConfig(ctx *cli.Context) (*config.AppConfig, error) {
	if err := config.LoadConfig(ctx.String("config"), config.LoadFromEnv); err != nil {
		return nil, err
	}
	conf := config.Config
	if ctx.Bool("coarse") {
		conf.Resolution = clock.Second.String()
	}
	if ctx.IsSet("log-level") {
		conf.LogLevel = ctx.Int("log-level")
	}
	return conf, conf.Validate()
}

// setupLogger 没配置日志名时输出到stdout, 否则写文件
func setupLogger(ctx context.Context, wg *sync.WaitGroup, c *config.LogConfig) error {
	if len(c.LogName) == 0 {
		return mlog.UseStdLogger(mlog.Level(c.LogLevel))
	}
	return mlog.UseZapLogger(ctx, wg, c.FileOptions())
}

// newLoop 默认用进程内置的SIGALRM循环
func newLoop(c *config.TimerConfig) (*clock.Loop, error) {
	res, opts := c.LoopOptions()
	if c.Countdown {
		return clock.New(clock.NewWallClock(res), clock.NewCountdownGate(), opts), nil
	}
	if err := clock.Init(res, opts, c.WakeSignals...); err != nil {
		return nil, err
	}
	return clock.Default(), nil
}

func runJobs(ctx *cli.Context) error {
	conf, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logCtx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	defer func() {
		cancel()
		wg.Wait()
	}()
	if err = setupLogger(logCtx, wg, &conf.LogConfig); err != nil {
		return err
	}
	if mlog.IsLevelEnabled(mlog.DebugLevel) {
		mlog.Debugf("config: %s", conf.JsonFormat())
	}

	reg, err := jobs.Load(conf.Jobs)
	if err != nil {
		return err
	}
	loop, err := newLoop(&conf.TimerConfig)
	if err != nil {
		return err
	}
	n, err := reg.Arm(loop, ctx.String("only"))
	if err != nil {
		return err
	}
	if n == 0 {
		mlog.Warnf("no job matches %q, nothing to run", ctx.String("only"))
		return nil
	}
	mlog.Infof("%d jobs armed on loop %s", n, loop.ID())

	a := app.DefaultApp()
	m := newTimerModule(loop, a)
	if err = a.Run(m); err != nil {
		return err
	}
	return m.Err()
}

func listJobs(ctx *cli.Context) error {
	if err := config.LoadConfig(ctx.String("config"), config.LoadFromEnv); err != nil {
		return err
	}
	reg, err := jobs.Load(config.Config.Jobs)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCHEDULE\tCOUNT\tNEXT")
	for _, j := range reg.Select("") {
		c := j.Config()
		next, err := j.NextFire()
		if err != nil {
			return err
		}
		count := "-"
		if c.Count > 0 {
			count = humanize.Comma(int64(c.Count))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, schedule(c), count, humanize.Time(next))
	}
	return w.Flush()
}

func schedule(c config.JobConfig) string {
	switch {
	case len(c.Cron) != 0:
		return "cron " + c.Cron
	case c.Period > 0:
		return "every " + (time.Duration(c.Period) * time.Millisecond).String()
	}
	return "once"
}
