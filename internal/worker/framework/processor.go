package framework

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// ProcessorStats 处理统计
type ProcessorStats struct {
	Processed int64
	Acked     int64
	Released  int64
	Buried    int64
	InFlight  int64
}

// Processor 处理器：接收消息，调用业务处理函数，并按结果确认消息
type Processor struct {
	cfg        *ProcessorConfig
	proc       Proc
	source     MessageSource
	logger     logger.Logger
	shutdownCh chan struct{}
	wg         sync.WaitGroup

	processed *atomic.Int64
	acked     *atomic.Int64
	released  *atomic.Int64
	buried    *atomic.Int64
	inFlight  *atomic.Int64
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc Proc, source MessageSource, log logger.Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     log,
		shutdownCh: make(chan struct{}),
		processed:  atomic.NewInt64(0),
		acked:      atomic.NewInt64(0),
		released:   atomic.NewInt64(0),
		buried:     atomic.NewInt64(0),
		inFlight:   atomic.NewInt64(0),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(logger.WithWorkerID(ctx, i), i, inputChan)
	}
}

// SignalShutdown 通知 Processor 进入 Drain 模式
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	stats := p.Stats()
	p.logger.Infof(context.Background(), "[Processor] All workers exited: processed=%d, acked=%d, released=%d, buried=%d",
		stats.Processed, stats.Acked, stats.Released, stats.Buried)
}

// Stats 返回处理统计
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Processed: p.processed.Load(),
		Acked:     p.acked.Load(),
		Released:  p.released.Load(),
		Buried:    p.buried.Load(),
		InFlight:  p.inFlight.Load(),
	}
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	p.inFlight.Inc()
	defer p.inFlight.Dec()

	startTime := time.Now()

	// 1. 超时控制
	procCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	// 2. 调用业务处理函数，捕获 panic
	resp := p.safeProc(procCtx, msg)
	p.processed.Inc()

	// 3. 按结果确认消息
	switch resp.Action {
	case JobActionAck, JobActionBury:
		if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
			p.logger.Errorf(procCtx, "[Processor-%d] Ack failed: %s: %v", workerID, msg.ID, err)
		}
		if resp.Action == JobActionBury {
			p.buried.Inc()
			p.logger.Errorf(procCtx, "[Processor-%d] Message buried: %s: %v", workerID, msg.ID, resp.Err)
		} else {
			p.acked.Inc()
		}
	case JobActionRelease:
		p.released.Inc()
		p.logger.Warnf(procCtx, "[Processor-%d] Message released for redelivery: %s: %v", workerID, msg.ID, resp.Err)
	}

	p.logger.Infof(procCtx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))
}

func (p *Processor) safeProc(ctx context.Context, msg *Message) (resp *JobResp) {
	defer func() {
		if r := recover(); r != nil {
			resp = &JobResp{Action: JobActionBury, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	resp = p.proc(ctx, msg)
	if resp == nil {
		resp = &JobResp{Action: JobActionAck}
	}
	return resp
}
