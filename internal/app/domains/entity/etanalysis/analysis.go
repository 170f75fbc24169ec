package etanalysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
)

// 错误定义
var (
	ErrInvalidAnalysisID = errors.New("analysis ID cannot be empty")
	ErrInvalidTransition = errors.New("invalid analysis state transition")
)

// Status 分析状态
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusSubmitting Status = "SUBMITTING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// FailureKind 失败类型
type FailureKind string

const (
	FailureClassifierUnavailable   FailureKind = "CLASSIFIER_UNAVAILABLE"
	FailureInvalidPredictionFormat FailureKind = "INVALID_PREDICTION_FORMAT"
	FailureInvalidInput            FailureKind = "INVALID_INPUT"
	FailureDispatchFailed          FailureKind = "DISPATCH_FAILED"
)

// Analysis 单次提交的分析（聚合根）
type Analysis struct {
	ID            string                          // 分析ID (UUID)
	SessionID     string                          // 会话ID，可为空
	Status        Status                          // 当前状态
	Records       []etprediction.PredictionRecord // 成功时的预测记录
	Message       string                          // 分类器返回的消息
	FailureKind   FailureKind                     // 失败类型
	FailureReason string                          // 失败原因
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New 创建分析（工厂方法），初始状态 IDLE
func New(id, sessionID string) (*Analysis, error) {
	if id == "" {
		return nil, ErrInvalidAnalysisID
	}

	now := time.Now()
	return &Analysis{
		ID:        id,
		SessionID: sessionID,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Submit IDLE → SUBMITTING
func (a *Analysis) Submit() error {
	if a.Status != StatusIdle {
		return a.transitionError(StatusSubmitting)
	}
	a.Status = StatusSubmitting
	a.UpdatedAt = time.Now()
	return nil
}

// Succeed SUBMITTING → SUCCEEDED
func (a *Analysis) Succeed(records []etprediction.PredictionRecord, message string) error {
	if a.Status != StatusSubmitting {
		return a.transitionError(StatusSucceeded)
	}
	if records == nil {
		records = []etprediction.PredictionRecord{}
	}
	a.Status = StatusSucceeded
	a.Records = records
	a.Message = message
	a.UpdatedAt = time.Now()
	return nil
}

// Fail SUBMITTING → FAILED
func (a *Analysis) Fail(kind FailureKind, reason string) error {
	if a.Status != StatusSubmitting {
		return a.transitionError(StatusFailed)
	}
	a.Status = StatusFailed
	a.FailureKind = kind
	a.FailureReason = reason
	a.UpdatedAt = time.Now()
	return nil
}

// Primary 展示只使用第一条记录
func (a *Analysis) Primary() (etprediction.PredictionRecord, bool) {
	if len(a.Records) == 0 {
		return nil, false
	}
	return a.Records[0], true
}

func (a *Analysis) transitionError(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
}
