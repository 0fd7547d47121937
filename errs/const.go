package errs

const (
	ErrCode_OK        = 0
	ErrCode_Unknown   = 1
	ErrCode_Startup   = 100
	ErrCode_ArmFailed = 101
	ErrCode_NoHandler = 102
	ErrCode_NotInit   = 103
	ErrCode_Running   = 104
	ErrCode_BadConfig = 105
)

var (
	Unknown = CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	// 安装信号处理失败, 致命不重试
	Startup = CreateCodeError(ErrCode_Startup, "STARTUP_FAILURE")
	// 设置系统定时器失败, 下一轮重试
	ArmFailed = CreateCodeError(ErrCode_ArmFailed, "ARM_TIMER_FAILED")
	NoHandler = CreateCodeError(ErrCode_NoHandler, "TIMER_NO_HANDLER")
	NotInit   = CreateCodeError(ErrCode_NotInit, "CLOCK_NOT_INIT")
	Running   = CreateCodeError(ErrCode_Running, "LOOP_ALREADY_RUNNING")
	BadConfig = CreateCodeError(ErrCode_BadConfig, "BAD_CONFIG")
)
