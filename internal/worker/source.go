package worker

import (
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/mq/lmstfy"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
)

// LmstfySource lmstfy 消息源适配器
type LmstfySource struct {
	client *lmstfy.Client
}

// NewLmstfySource 创建 lmstfy 消息源
func NewLmstfySource(client *lmstfy.Client) *LmstfySource {
	return &LmstfySource{client: client}
}

// Consume 拉取消息
func (s *LmstfySource) Consume(queue string, timeout, ttr time.Duration) (*framework.Message, error) {
	msg, err := s.client.Consume(queue, timeout, ttr)
	if err != nil || msg == nil {
		return nil, err
	}
	return &framework.Message{ID: msg.ID, Queue: msg.Queue, Data: msg.Data}, nil
}

// Ack 确认消息
func (s *LmstfySource) Ack(queue, jobID string) error {
	return s.client.Ack(queue, jobID)
}
