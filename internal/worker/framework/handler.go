package framework

import (
	"context"
	"encoding/json"
)

// JobMeta Job 元信息
type JobMeta struct {
	RequestID  string
	ActionType string
	ID         string
}

// BusinessHandler 业务处理器接口
type BusinessHandler interface {
	Handle(ctx context.Context) error
}

// HandlerFactory Handler 构造函数，payload 为 job.payload.data.data 原始 JSON
type HandlerFactory func(ctx context.Context, meta *JobMeta, payload json.RawMessage) (BusinessHandler, error)
