package lmstfy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
)

// 默认投递参数
const (
	defaultTries uint16 = 1 // 分类不做自动重试
)

// Message 队列消息
type Message struct {
	ID    string
	Queue string
	Data  []byte
}

// Client Lmstfy 客户端封装
type Client struct {
	cli       *client.LmstfyClient
	namespace string
	jobTTL    time.Duration
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace, token string, jobTTL time.Duration) *Client {
	return &Client{
		cli:       client.NewLmstfyClient(host, port, namespace, token),
		namespace: namespace,
		jobTTL:    jobTTL,
	}
}

// Publish 序列化为 JSON 后发布到队列
func (c *Client) Publish(ctx context.Context, queue string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message failed: %w", err)
	}
	return c.PublishRaw(queue, payload)
}

// PublishRaw 发布原始字节到队列
func (c *Client) PublishRaw(queue string, data []byte) error {
	ttl := uint32(c.jobTTL.Seconds())
	if _, err := c.cli.Publish(queue, data, ttl, defaultTries, 0); err != nil {
		return fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return nil
}

// Consume 拉取一条消息，超时未拉到时返回 (nil, nil)
func (c *Client) Consume(queue string, timeout, ttr time.Duration) (*Message, error) {
	job, err := c.cli.Consume(queue, uint32(ttr.Seconds()), uint32(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	return &Message{
		ID:    job.ID,
		Queue: job.Queue,
		Data:  job.Data,
	}, nil
}

// Ack 确认消息（删除消息）
func (c *Client) Ack(queue, jobID string) error {
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}
