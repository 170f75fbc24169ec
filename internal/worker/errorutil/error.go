package errorutil

import (
	"errors"
	"fmt"
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Message   string
	Retryable bool
	Err       error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable 可重试错误（网络错误、临时故障等）
func Retriable(message string, err error) *Error {
	return &Error{Message: message, Retryable: true, Err: err}
}

// NonRetriable 不可重试错误（消息格式错误、业务规则错误等）
func NonRetriable(message string, err error) *Error {
	return &Error{Message: message, Retryable: false, Err: err}
}

// NonRetriablef 格式化的不可重试错误
func NonRetriablef(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsRetryable 判断错误是否可重试，未标记的错误视为不可重试
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
