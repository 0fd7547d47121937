package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/fixkme/etimer/clock"
	"github.com/fixkme/etimer/errs"
	"github.com/fixkme/etimer/mlog"
)

var Config *AppConfig

type AppConfig struct {
	TimerConfig `json:",inline" mapstructure:",inline"`
	LogConfig   `json:",inline" mapstructure:",inline"`
	Jobs        []JobConfig `json:"jobs" mapstructure:"jobs"`
}

type TimerConfig struct {
	Resolution   string   `json:"resolution" mapstructure:"resolution"`         // "ms" 或 "s"
	QuantumUs    int64    `json:"quantum_us" mapstructure:"quantum_us"`         // 已到期时的最小定时 微秒
	CeilingUnits uint64   `json:"ceiling_units" mapstructure:"ceiling_units"`   // 单次睡眠上限, 时间源单位
	WakeSignals  []string `json:"wake_signals" mapstructure:"wake_signals"`     // 额外的唤醒信号
	Countdown    bool     `json:"countdown" mapstructure:"countdown"`           // 不用SIGALRM, 用进程内倒计时
	LockOSThread bool     `json:"lock_os_thread" mapstructure:"lock_os_thread"` // 循环绑定OS线程
}

type LogConfig struct {
	LogPath       string `json:"log_path" mapstructure:"log_path"`
	LogName       string `json:"log_name" mapstructure:"log_name"`
	LogLevel      int    `json:"log_level" mapstructure:"log_level"`
	LogStdOut     bool   `json:"log_std_out" mapstructure:"log_std_out"`
	LogMaxSizeMB  int    `json:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups" mapstructure:"log_max_backups"`
}

type JobConfig struct {
	Name   string `json:"name" mapstructure:"name"`
	Delay  int64  `json:"delay" mapstructure:"delay"`   // 首次触发延迟 毫秒
	Period int64  `json:"period" mapstructure:"period"` // 周期 毫秒, 0为单次
	Cron   string `json:"cron" mapstructure:"cron"`     // cron表达式, 与period互斥
	Count  int    `json:"count" mapstructure:"count"`   // 触发次数上限, 0为不限
}

// Default 只用SIGALRM, 毫秒精度, 日志输出到stdout
func Default() *AppConfig {
	return &AppConfig{
		TimerConfig: TimerConfig{
			Resolution: clock.Millisecond.String(),
			QuantumUs:  clock.DefaultQuantum.Microseconds(),
		},
		LogConfig: LogConfig{
			LogLevel:  int(mlog.InfoLevel),
			LogStdOut: true,
		},
	}
}

func LoadConfig(configFile string, loadConfigFromEnv func(*AppConfig) error) error {
	Config = Default()
	if len(configFile) != 0 {
		if err := loadConfigFromFile(configFile); err != nil {
			return err
		}
	}
	if loadConfigFromEnv != nil {
		if err := loadConfigFromEnv(Config); err != nil {
			return err
		}
	}
	return Config.Validate()
}

func loadConfigFromFile(configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, Config); err != nil {
		return errs.BadConfig.Wrap(err)
	}
	return nil
}

// LoadFromEnv 环境变量覆盖 ETIMER_RESOLUTION, ETIMER_LOG_LEVEL, ETIMER_LOG_PATH
func LoadFromEnv(conf *AppConfig) error {
	if v, ok := os.LookupEnv("ETIMER_RESOLUTION"); ok {
		conf.Resolution = v
	}
	if v, ok := os.LookupEnv("ETIMER_LOG_LEVEL"); ok {
		lv, ok := mlog.ParseLevel(v)
		if !ok {
			return errs.BadConfig.Printf("ETIMER_LOG_LEVEL=%q", v)
		}
		conf.LogLevel = int(lv)
	}
	if v, ok := os.LookupEnv("ETIMER_LOG_PATH"); ok {
		conf.LogPath = v
	}
	return nil
}

func (conf *AppConfig) Validate() error {
	if err := conf.TimerConfig.Validate(); err != nil {
		return err
	}
	if conf.LogLevel < int(mlog.FatalLevel) || conf.LogLevel > int(mlog.TraceLevel) {
		return errs.BadConfig.Printf("log_level=%d", conf.LogLevel)
	}
	names := make(map[string]struct{}, len(conf.Jobs))
	for i := range conf.Jobs {
		j := &conf.Jobs[i]
		if err := j.Validate(); err != nil {
			return err
		}
		if _, ok := names[j.Name]; ok {
			return errs.BadConfig.Printf("duplicate job %q", j.Name)
		}
		names[j.Name] = struct{}{}
	}
	return nil
}

func (c *TimerConfig) Validate() error {
	if _, ok := clock.ParseResolution(c.Resolution); !ok {
		return errs.BadConfig.Printf("resolution=%q", c.Resolution)
	}
	if c.QuantumUs < 0 {
		return errs.BadConfig.Printf("quantum_us=%d", c.QuantumUs)
	}
	if c.Countdown && len(c.WakeSignals) > 0 {
		return errs.BadConfig.Print("wake_signals need the signal gate")
	}
	return nil
}

// LoopOptions 转换成clock参数, 调用前需要先Validate
func (c *TimerConfig) LoopOptions() (clock.Resolution, clock.Options) {
	res, _ := clock.ParseResolution(c.Resolution)
	return res, clock.Options{
		Quantum:      time.Duration(c.QuantumUs) * time.Microsecond,
		Ceiling:      c.CeilingUnits,
		LockOSThread: c.LockOSThread,
	}
}

func (c *LogConfig) FileOptions() mlog.FileOptions {
	return mlog.FileOptions{
		Path:       c.LogPath,
		Name:       c.LogName,
		Level:      mlog.Level(c.LogLevel),
		StdOut:     c.LogStdOut,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
}

func (j *JobConfig) Validate() error {
	if len(strings.TrimSpace(j.Name)) == 0 {
		return errs.BadConfig.Print("job without name")
	}
	if j.Delay < 0 || j.Period < 0 || j.Count < 0 {
		return errs.BadConfig.Printf("job %q: negative delay/period/count", j.Name)
	}
	if len(j.Cron) != 0 {
		if j.Period != 0 {
			return errs.BadConfig.Printf("job %q: cron and period are exclusive", j.Name)
		}
		// gronx也接受带秒的6段写法, 这里只允许5段
		if len(strings.Fields(j.Cron)) != 5 || !gronx.New().IsValid(j.Cron) {
			return errs.BadConfig.Printf("job %q: bad cron %q", j.Name, j.Cron)
		}
	}
	return nil
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
