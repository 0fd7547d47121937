package errs

import (
	"errors"
	"fmt"
	"strings"
)

type CodeError interface {
	error
	Code() int32
	Print(extras ...string) CodeError
	Printf(format string, args ...any) CodeError
	Wrap(cause error) CodeError
	Is(error) bool
}

func CreateCodeError(code int32, desc string) CodeError {
	return &codeError{
		Errno: code, //  错误码数字
		Desc:  desc, //  错误描述字符串, 如：CURRENCY_NOT_ENOUGH、UNKNOWN_ERROR, max count limit
	}
}

func WrapError(err error) CodeError {
	if err == nil {
		return nil
	}
	var x *codeError
	if errors.As(err, &x) {
		return x
	}
	return CreateCodeError(ErrCode_Unknown, err.Error())
}

// Wrap 附加底层错误, errors.Is 同时匹配错误码和cause
func (e *codeError) Wrap(cause error) CodeError {
	if cause == nil {
		return e
	}
	return &codeError{
		Errno: e.Errno,
		Desc:  e.Desc + "," + cause.Error(),
		cause: cause,
	}
}

func (e *codeError) Unwrap() error {
	return e.cause
}

type codeError struct {
	Errno int32
	Desc  string
	cause error
}

func (e *codeError) Code() int32 {
	return e.Errno
}

func (e *codeError) Error() string {
	return e.Desc
}

func (e *codeError) String() string {
	return fmt.Sprintf("errno: %d, desc: %s", e.Errno, e.Desc)
}

func (e *codeError) Print(extras ...string) CodeError {
	if len(extras) == 0 {
		return e
	}
	ns := len(e.Desc) + len(extras)
	for _, extra := range extras {
		ns += len(extra)
	}
	builder := strings.Builder{}
	builder.Grow(ns)
	builder.WriteString(e.Desc)
	for _, extra := range extras {
		builder.WriteByte(',')
		builder.WriteString(extra)
	}
	er := &codeError{
		Errno: e.Errno,
		Desc:  builder.String(),
		cause: e.cause,
	}
	return er
}

func (e *codeError) Printf(format string, args ...any) CodeError {
	if len(format) == 0 {
		return e
	}
	desc := fmt.Sprintf(e.Desc+","+format, args...)
	er := &codeError{
		Errno: e.Errno,
		Desc:  desc,
		cause: e.cause,
	}
	return er
}

func (e *codeError) Is(target error) bool {
	if x, ok := target.(*codeError); ok {
		return x.Errno == e.Errno
	}
	return false
}
