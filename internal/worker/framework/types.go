package framework

import (
	"context"
	"time"
)

// Message 消息结构（框架内部流转）
type Message struct {
	ID    string // 消息 ID
	Queue string // 队列名称
	Data  []byte // 原始 Job 数据
}

// MessageSource 消息源接口（适配不同 MQ）
type MessageSource interface {
	// Consume 消费消息（阻塞，直到拉取到消息或超时），超时返回 (nil, nil)
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（删除消息）
	Ack(queue string, jobID string) error
}

// JobAction 消息处理后的动作
type JobAction int

const (
	// JobActionAck 处理完成，ACK 消息
	JobActionAck JobAction = iota
	// JobActionRelease 临时失败，不 ACK，等待 TTR 到期后重新投递
	JobActionRelease
	// JobActionBury 无法处理，ACK 并记录，避免反复投递
	JobActionBury
)

func (a JobAction) String() string {
	switch a {
	case JobActionAck:
		return "ack"
	case JobActionRelease:
		return "release"
	case JobActionBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobAction
	Err    error
}

// Proc 业务处理函数
type Proc func(ctx context.Context, msg *Message) *JobResp

// ProcessorFunc 处理链中的一步
type ProcessorFunc func(ctx context.Context) error

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	QueueName    string        // 队列名称
	Concurrency  int           // 并发拉取数
	Timeout      time.Duration // 拉取超时
	TTR          time.Duration // Time-To-Run
	Rate         time.Duration // 拉取间隔
	ErrorBackoff time.Duration // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Concurrency int           // 并发处理数
	BufferSize  int           // inputChan 缓冲区大小
	Timeout     time.Duration // 单个消息处理超时
}
