package mlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 文件日志参数
type FileOptions struct {
	Path       string // 日志目录, 默认当前路径
	Name       string // 日志名, 默认mlog
	Level      Level
	StdOut     bool // 同时输出到stdout
	MaxSizeMB  int  // 单个文件大小上限, 默认100MB
	MaxBackups int  // 保留的旧文件个数, 0表示全部保留
}

type zapLogger struct {
	level Level
	sugar *zap.SugaredLogger
	file  *lumberjack.Logger
}

func newZapLogger(opts FileOptions) *zapLogger {
	if len(opts.Path) == 0 {
		opts.Path = "."
	}
	if len(opts.Name) == 0 {
		opts.Name = "mlog"
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 100
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Path, opts.Name+".log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}

	encConf := zap.NewProductionEncoderConfig()
	encConf.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	encConf.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encConf)

	ws := zapcore.AddSync(file)
	if opts.StdOut {
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.Lock(os.Stdout))
	}
	// 级别过滤由IsLevelEnabled负责, zap这里全部放行
	core := zapcore.NewCore(encoder, ws, zapcore.DebugLevel)
	sugar := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
	return &zapLogger{
		level: opts.Level,
		sugar: sugar,
		file:  file,
	}
}

// UseZapLogger 使用zap+lumberjack的文件日志, ctx结束时刷盘并关闭文件
func UseZapLogger(ctx context.Context, wg *sync.WaitGroup, opts FileOptions) error {
	if err := os.MkdirAll(defaultPath(opts.Path), 0755); err != nil {
		return fmt.Errorf("mlog mkdir: %w", err)
	}
	l := newZapLogger(opts)
	l.Start(ctx, wg)
	SetLogger(l)
	return nil
}

func defaultPath(p string) string {
	if len(p) == 0 {
		return "."
	}
	return p
}

func (me *zapLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = me.sugar.Sync()
		_ = me.file.Close()
	}()
}

func (me *zapLogger) IsLevelEnabled(level Level) bool {
	return me.level >= level
}

func (me *zapLogger) Trace(args ...interface{}) {
	if me.IsLevelEnabled(TraceLevel) {
		me.sugar.Debug(append([]any{"[trace] "}, args...)...)
	}
}

func (me *zapLogger) Tracef(format string, args ...interface{}) {
	if me.IsLevelEnabled(TraceLevel) {
		me.sugar.Debugf("[trace] "+format, args...)
	}
}

func (me *zapLogger) Debug(args ...interface{}) {
	if me.IsLevelEnabled(DebugLevel) {
		me.sugar.Debug(args...)
	}
}

func (me *zapLogger) Debugf(format string, args ...interface{}) {
	if me.IsLevelEnabled(DebugLevel) {
		me.sugar.Debugf(format, args...)
	}
}

func (me *zapLogger) Info(args ...interface{}) {
	if me.IsLevelEnabled(InfoLevel) {
		me.sugar.Info(args...)
	}
}

func (me *zapLogger) Infof(format string, args ...interface{}) {
	if me.IsLevelEnabled(InfoLevel) {
		me.sugar.Infof(format, args...)
	}
}

func (me *zapLogger) Notice(args ...interface{}) {
	if me.IsLevelEnabled(NoticeLevel) {
		me.sugar.Info(append([]any{"[notice] "}, args...)...)
	}
}

func (me *zapLogger) Noticef(format string, args ...interface{}) {
	if me.IsLevelEnabled(NoticeLevel) {
		me.sugar.Infof("[notice] "+format, args...)
	}
}

func (me *zapLogger) Warn(args ...interface{}) {
	if me.IsLevelEnabled(WarnLevel) {
		me.sugar.Warn(args...)
	}
}

func (me *zapLogger) Warnf(format string, args ...interface{}) {
	if me.IsLevelEnabled(WarnLevel) {
		me.sugar.Warnf(format, args...)
	}
}

func (me *zapLogger) Error(args ...interface{}) {
	if me.IsLevelEnabled(ErrorLevel) {
		me.sugar.Error(args...)
	}
}

func (me *zapLogger) Errorf(format string, args ...interface{}) {
	if me.IsLevelEnabled(ErrorLevel) {
		me.sugar.Errorf(format, args...)
	}
}

// Fatal 写完日志后由zap负责退出进程
func (me *zapLogger) Fatal(args ...interface{}) {
	me.sugar.Fatal(args...)
}

func (me *zapLogger) Fatalf(format string, args ...interface{}) {
	me.sugar.Fatalf(format, args...)
}
