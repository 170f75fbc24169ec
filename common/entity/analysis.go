package entity

import (
	"encoding/json"
	"time"
)

// Analysis 分析存储模型（Redis 中的 JSON 值，带 TTL）
type Analysis struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id,omitempty"`
	Status        string          `json:"status"`
	Records       json.RawMessage `json:"records,omitempty"` // []PredictionRecord，保留键顺序
	Message       string          `json:"message,omitempty"`
	FailureKind   string          `json:"failure_kind,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AnalysisKey 分析记录键：ecg:analysis:{id}
func AnalysisKey(analysisID string) string {
	return "ecg:analysis:" + analysisID
}

// SessionLockKey 会话提交锁键：ecg:session:{sid}:lock
func SessionLockKey(sessionID string) string {
	return "ecg:session:" + sessionID + ":lock"
}
