package model

import "encoding/json"

// ClassifyCallback 分类回调消息（标准化）
// 用于 worker → apiserver callback consumer 的消息传递
type ClassifyCallback struct {
	RequestID   string          `json:"request_id"`             // 对应请求的 request_id（链路追踪）
	AnalysisID  string          `json:"analysis_id"`            // 分析 ID
	Status      string          `json:"status"`                 // 回调状态: SUCCESS / FAILED
	Predictions json.RawMessage `json:"predictions,omitempty"`  // 分类器原始 predictions 字段（成功时返回）
	Message     string          `json:"message,omitempty"`      // 分类器返回的消息
	FailureKind string          `json:"failure_kind,omitempty"` // 失败类型（失败时返回）
	Error       string          `json:"error,omitempty"`        // 错误信息（失败时返回）
	Retryable   bool            `json:"retryable,omitempty"`    // 失败是否为临时故障
	ProcessedAt int64           `json:"processed_at"`           // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)
