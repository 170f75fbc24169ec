package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/mq/lmstfy"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// Queue 回调队列
type Queue interface {
	Consume(queue string, timeout, ttr time.Duration) (*lmstfy.Message, error)
	Ack(queue, jobID string) error
}

// CallbackHandler 回调处理
type CallbackHandler interface {
	HandleCallback(ctx context.Context, callback *model.ClassifyCallback) error
}

// CallbackConsumer 回调消费者
// 职责：
// 1. 从 lmstfy 队列消费回调消息
// 2. 解析消息并调用 CallbackService 处理
// 3. 确认消息（ACK）
type CallbackConsumer struct {
	queue     Queue
	handler   CallbackHandler
	queueName string
	logger    logger.Logger

	timeout      time.Duration // 拉取消息超时
	ttr          time.Duration // Time-To-Run
	pollInterval time.Duration // 出错后等待
}

// Config 消费者配置
type Config struct {
	QueueName    string
	Timeout      time.Duration
	TTR          time.Duration
	PollInterval time.Duration
}

// NewCallbackConsumer 创建回调消费者实例
func NewCallbackConsumer(queue Queue, handler CallbackHandler, cfg Config, log logger.Logger) *CallbackConsumer {
	return &CallbackConsumer{
		queue:        queue,
		handler:      handler,
		queueName:    cfg.QueueName,
		timeout:      cfg.Timeout,
		ttr:          cfg.TTR,
		pollInterval: cfg.PollInterval,
		logger:       log,
	}
}

// Start 启动消费循环，ctx 取消后返回
func (c *CallbackConsumer) Start(ctx context.Context) error {
	c.logger.Infof(ctx, "[CallbackConsumer] started: queue=%s, timeout=%s, ttr=%s", c.queueName, c.timeout, c.ttr)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infof(ctx, "[CallbackConsumer] stopped")
			return nil
		default:
		}

		if err := c.consumeOne(ctx); err != nil {
			c.logger.Errorf(ctx, "[CallbackConsumer] consume failed: %v", err)

			timer := time.NewTimer(c.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// consumeOne 消费一条消息
func (c *CallbackConsumer) consumeOne(ctx context.Context) error {
	// 1. 从队列拉取消息
	msg, err := c.queue.Consume(c.queueName, c.timeout, c.ttr)
	if err != nil {
		return fmt.Errorf("consume message failed: %w", err)
	}
	if msg == nil {
		return nil
	}

	// 2. 解析回调消息
	callback, err := parseMessage(msg.Data)
	if err != nil {
		// 解析失败直接 ACK，避免反复投递
		if ackErr := c.queue.Ack(c.queueName, msg.ID); ackErr != nil {
			c.logger.Warnf(ctx, "[CallbackConsumer] ack malformed message %s failed: %v", msg.ID, ackErr)
		}
		return fmt.Errorf("parse message %s failed: %w", msg.ID, err)
	}

	// 3. 处理回调，失败不 ACK（由 TTR 重新投递）
	if err := c.handler.HandleCallback(ctx, callback); err != nil {
		return fmt.Errorf("handle callback %s failed: %w", msg.ID, err)
	}

	// 4. 确认消息
	if err := c.queue.Ack(c.queueName, msg.ID); err != nil {
		return fmt.Errorf("ack message %s failed: %w", msg.ID, err)
	}

	c.logger.Debugf(ctx, "[CallbackConsumer] message processed: job_id=%s, analysis_id=%s", msg.ID, callback.AnalysisID)
	return nil
}

// parseMessage 解析并校验回调消息
func parseMessage(data []byte) (*model.ClassifyCallback, error) {
	var callback model.ClassifyCallback
	if err := json.Unmarshal(data, &callback); err != nil {
		return nil, fmt.Errorf("unmarshal callback failed: %w", err)
	}

	if callback.AnalysisID == "" {
		return nil, fmt.Errorf("analysis_id is required")
	}
	switch callback.Status {
	case model.CallbackStatusSuccess, model.CallbackStatusFailed:
	default:
		return nil, fmt.Errorf("invalid status %q", callback.Status)
	}

	return &callback, nil
}
