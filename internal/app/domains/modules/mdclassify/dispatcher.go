package mdclassify

import (
	"context"
	"fmt"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// Dispatcher 分类调度
// 同步调度直接返回结果；异步调度返回 nil，结果经回调到达
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID, analysisID string, m etecg.SampleMatrix) (*Outcome, error)
	Async() bool
}

// JobPublisher 任务队列发布者
type JobPublisher interface {
	Publish(ctx context.Context, queue string, v interface{}) error
}

// InlineDispatcher 在当前进程内调用分类器
type InlineDispatcher struct {
	predictor Predictor
	logger    logger.Logger
}

// NewInlineDispatcher 创建同步调度器
func NewInlineDispatcher(predictor Predictor, log logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{predictor: predictor, logger: log}
}

// Dispatch 同步分类
func (d *InlineDispatcher) Dispatch(ctx context.Context, requestID, analysisID string, m etecg.SampleMatrix) (*Outcome, error) {
	outcome := Classify(ctx, d.predictor, m)
	if !outcome.Succeeded() {
		d.logger.Warnf(ctx, "[Classify] analysis %s failed: %s: %s", analysisID, outcome.FailureKind, outcome.FailureReason)
	}
	return &outcome, nil
}

func (d *InlineDispatcher) Async() bool { return false }

// QueueDispatcher 发布分类任务到队列，由 worker 处理
type QueueDispatcher struct {
	publisher JobPublisher
	queueName string
	logger    logger.Logger
}

// NewQueueDispatcher 创建队列调度器
func NewQueueDispatcher(publisher JobPublisher, queueName string, log logger.Logger) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher, queueName: queueName, logger: log}
}

// Dispatch 发布分类任务，任务携带完整矩阵
func (d *QueueDispatcher) Dispatch(ctx context.Context, requestID, analysisID string, m etecg.SampleMatrix) (*Outcome, error) {
	job := model.NewClassifyJob(requestID, analysisID, m.Rows())
	if err := d.publisher.Publish(ctx, d.queueName, job); err != nil {
		return nil, fmt.Errorf("publish classify job failed: %w", err)
	}

	d.logger.Infof(ctx, "[Classify] job published: analysis_id=%s, queue=%s", analysisID, d.queueName)
	return nil, nil
}

func (d *QueueDispatcher) Async() bool { return true }
