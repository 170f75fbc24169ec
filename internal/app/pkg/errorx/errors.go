package errorx

import (
	"errors"
	"net/http"
)

// 定义业务错误
var (
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrSubmissionInFlight = errors.New("an analysis is already being submitted for this session")
)

// BusinessError 业务错误结构
type BusinessError struct {
	Code    int
	Message string
	Details []ErrorDetail
	Err     error
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error { return e.Err }

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装底层错误
func Wrap(code int, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail 追加错误详情
func (e *BusinessError) WithDetail(path, info string) *BusinessError {
	e.Details = append(e.Details, ErrorDetail{Path: path, Info: info})
	return e
}

// BadRequest 400 业务错误
func BadRequest(message string) *BusinessError {
	return NewBusinessError(http.StatusBadRequest, message)
}
