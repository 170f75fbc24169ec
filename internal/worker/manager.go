package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/config"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/handlers"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/handlers/classify"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// Deps Manager 依赖
type Deps struct {
	Source    framework.MessageSource // 任务队列
	Publisher mdclassify.JobPublisher // 回调队列
	Predictor mdclassify.Predictor    // 远程分类器
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.Config
	deps       Deps
	workers    []Worker
	closing    *atomic.Bool
	started    chan struct{}
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(cfg *config.Config, deps Deps, log logger.Logger) (*ManagerInstance, error) {
	if len(cfg.Workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}
	if deps.Source == nil || deps.Publisher == nil || deps.Predictor == nil {
		return nil, fmt.Errorf("source, publisher and predictor are required")
	}

	return &ManagerInstance{
		ctx:        context.Background(),
		cfg:        cfg,
		deps:       deps,
		closing:    atomic.NewBool(false),
		started:    make(chan struct{}),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 启动 Manager，阻塞直到 Shutdown 完成
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载所有 Worker
	m.loadWorkers()
	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}
	close(m.started)

	// 3. 阻塞等待退出
	<-m.shutdownCh
	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *ManagerInstance) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 等待 Start 完成 Worker 加载
	<-m.started

	// 1. 所有 Worker 安全退出
	for _, worker := range m.workers {
		worker.Shutdown()
		stats := worker.Stats()
		m.logger.Infof(m.ctx, "[Manager] Worker %s stopped: processed=%d", worker.GetName(), stats.Processed)
	}

	// 2. 等待所有 Worker 退出
	m.wg.Wait()

	// 3. 关闭信号通道
	close(m.shutdownCh)
	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

// loadWorkers 按配置创建 Worker
func (m *ManagerInstance) loadWorkers() {
	for _, workerCfg := range m.cfg.Workers {
		subCfg := &framework.SubscriberConfig{
			QueueName:    workerCfg.QueueName,
			Concurrency:  workerCfg.Subscriber.Threads,
			Rate:         workerCfg.Subscriber.Rate,
			Timeout:      workerCfg.Subscriber.Timeout,
			TTR:          workerCfg.Subscriber.TTR,
			ErrorBackoff: workerCfg.Subscriber.ErrorBackoff,
		}

		procCfg := &framework.ProcessorConfig{
			Concurrency: workerCfg.Processor.Threads,
			BufferSize:  workerCfg.Processor.BufferSize,
			Timeout:     workerCfg.Processor.Timeout,
		}

		handlerMap := handlers.NewHandlerMap(classify.Deps{
			Predictor:     m.deps.Predictor,
			Publisher:     m.deps.Publisher,
			CallbackQueue: workerCfg.CallbackQueue,
			Logger:        m.logger,
		})

		worker := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.deps.Source,
			handlers.GetProcess(handlerMap, m.logger),
			m.logger,
		)
		m.workers = append(m.workers, worker)
	}
}
