package mdnotice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/memory"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/redis"
)

type subscription interface {
	Wait(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}

type publisher interface {
	Publish(ctx context.Context, channel string, message string) error
}

// NoticeModule 分析完成通知模块
// 职责：
// 1. 频道命名规则（ecg:analysis:result:{id}）
// 2. 通知消息的编解码
type NoticeModule struct {
	subscribe func(ctx context.Context, channel string) (subscription, error)
	publisher publisher
}

// NewRedisNoticeModule 基于 Redis Pub/Sub 创建通知模块
func NewRedisNoticeModule(client *redis.PubSubClient) *NoticeModule {
	return &NoticeModule{
		subscribe: func(ctx context.Context, channel string) (subscription, error) {
			sub, err := client.Subscribe(ctx, channel)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
		publisher: client,
	}
}

// NewMemoryNoticeModule 基于进程内 PubSub 创建通知模块
func NewMemoryNoticeModule(ps *memory.PubSub) *NoticeModule {
	return &NoticeModule{
		subscribe: func(ctx context.Context, channel string) (subscription, error) {
			sub, err := ps.Subscribe(ctx, channel)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
		publisher: ps,
	}
}

// Listener 单个分析的完成通知监听
type Listener struct {
	sub subscription
}

// Listen 订阅分析完成通知，必须在投递任务之前调用
func (m *NoticeModule) Listen(ctx context.Context, analysisID string) (*Listener, error) {
	sub, err := m.subscribe(ctx, model.AnalysisResultChannel(analysisID))
	if err != nil {
		return nil, err
	}
	return &Listener{sub: sub}, nil
}

// Wait 等待完成通知，超时返回 context.DeadlineExceeded
func (l *Listener) Wait(ctx context.Context, timeout time.Duration) (*model.AnalysisNotice, error) {
	payload, err := l.sub.Wait(ctx, timeout)
	if err != nil {
		return nil, err
	}

	var notice model.AnalysisNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		return nil, fmt.Errorf("unmarshal notice failed: %w", err)
	}
	return &notice, nil
}

// Close 取消订阅
func (l *Listener) Close() error {
	return l.sub.Close()
}

// Notify 发布分析完成通知
func (m *NoticeModule) Notify(ctx context.Context, analysis *etanalysis.Analysis) error {
	notice := model.AnalysisNotice{
		AnalysisID: analysis.ID,
		Status:     string(analysis.Status),
		Timestamp:  time.Now().Unix(),
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice failed: %w", err)
	}

	if err := m.publisher.Publish(ctx, model.AnalysisResultChannel(analysis.ID), string(payload)); err != nil {
		return fmt.Errorf("publish notice failed: %w", err)
	}
	return nil
}
