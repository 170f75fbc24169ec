package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/errorutil"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
)

// job 标准 Job 结构，业务数据延迟解析
type job struct {
	Payload *struct {
		Data *struct {
			RequestID  string          `json:"request_id"`
			ActionType string          `json:"action_type"`
			ID         string          `json:"id"`
			Data       json.RawMessage `json:"data"`
		} `json:"data"`
	} `json:"payload"`
}

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(handlerMap HandlerMap, log logger.Logger) framework.Proc {
	return func(ctx context.Context, msg *framework.Message) *framework.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, payload, err := parseJob(msg.Data)
		if err != nil {
			return &framework.JobResp{Action: framework.JobActionBury, Err: err}
		}

		// 2. 注入链路信息
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithAnalysisID(ctx, meta.ID)

		// 3. 路由
		factory, ok := handlerMap[meta.ActionType]
		if !ok {
			return &framework.JobResp{
				Action: framework.JobActionBury,
				Err:    errorutil.NonRetriablef("handler not found for action_type: %s", meta.ActionType),
			}
		}

		handler, err := factory(ctx, meta, payload)
		if err != nil {
			return &framework.JobResp{Action: framework.JobActionBury, Err: err}
		}

		// 4. 执行
		if err := handler.Handle(ctx); err != nil {
			action := framework.JobActionBury
			if errorutil.IsRetryable(err) {
				action = framework.JobActionRelease
			}
			return &framework.JobResp{Action: action, Err: err}
		}

		log.Debugf(ctx, "[GetProcess] %s handled in %v", meta.ActionType, time.Since(startTime))
		return &framework.JobResp{Action: framework.JobActionAck}
	}
}

// parseJob 解析标准 Job
func parseJob(data []byte) (*framework.JobMeta, json.RawMessage, error) {
	var j job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, nil, errorutil.NonRetriable("unmarshal job failed", err)
	}
	if j.Payload == nil || j.Payload.Data == nil {
		return nil, nil, errorutil.NonRetriablef("invalid job structure: payload.data is nil")
	}

	d := j.Payload.Data
	meta := &framework.JobMeta{
		RequestID:  d.RequestID,
		ActionType: d.ActionType,
		ID:         d.ID,
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	if len(d.Data) == 0 {
		return nil, nil, errorutil.NonRetriable("invalid job structure", fmt.Errorf("payload.data.data is empty"))
	}

	return meta, d.Data, nil
}
