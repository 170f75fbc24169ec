package svanalysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdnotice"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/repo/rpanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/errorx"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// SubmitInput 提交参数
type SubmitInput struct {
	SessionID string             // 可选，同一会话同时只允许一个提交中的分析
	Matrix    etecg.SampleMatrix // 已校验的采样矩阵
}

// AnalysisService 分析服务，负责提交、调度与完成的编排
type AnalysisService struct {
	repo       rpanalysis.AnalysisRepository
	dispatcher mdclassify.Dispatcher
	notices    *mdnotice.NoticeModule
	logger     logger.Logger
}

// NewAnalysisService 创建分析服务实例
func NewAnalysisService(
	repo rpanalysis.AnalysisRepository,
	dispatcher mdclassify.Dispatcher,
	notices *mdnotice.NoticeModule,
	log logger.Logger,
) *AnalysisService {
	return &AnalysisService{
		repo:       repo,
		dispatcher: dispatcher,
		notices:    notices,
		logger:     log,
	}
}

// Submit 提交分析（完整业务流程）
// 1. 创建分析并获取会话锁
// 2. 转为 SUBMITTING 并保存
// 3. 异步模式先订阅结果频道
// 4. 调度分类
// 5. Smart Wait（仅异步模式）
func (s *AnalysisService) Submit(ctx context.Context, in SubmitInput, wait time.Duration) (*etanalysis.Analysis, error) {
	if in.Matrix.IsZero() {
		return nil, errorx.BadRequest("ECG data is required")
	}

	analysis, err := etanalysis.New(uuid.NewString(), in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("create analysis entity failed: %w", err)
	}
	ctx = logger.WithAnalysisID(ctx, analysis.ID)

	// 1. 获取会话锁，token 为分析 ID
	if in.SessionID != "" {
		ok, err := s.repo.AcquireSession(ctx, in.SessionID, analysis.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errorx.ErrSubmissionInFlight
		}
	}

	// 2. 保存
	if err := analysis.Submit(); err != nil {
		s.releaseSession(ctx, analysis)
		return nil, err
	}
	if err := s.repo.Create(ctx, analysis); err != nil {
		s.releaseSession(ctx, analysis)
		return nil, fmt.Errorf("save analysis failed: %w", err)
	}

	// 3. 先订阅再投递，避免通知先于订阅到达
	var listener *mdnotice.Listener
	if s.dispatcher.Async() && wait > 0 {
		listener, err = s.notices.Listen(ctx, analysis.ID)
		if err != nil {
			s.logger.Warnf(ctx, "[Analysis] subscribe result channel failed, caller must poll: %v", err)
		} else {
			defer listener.Close()
		}
	}

	// 4. 调度
	requestID := logger.TraceIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	outcome, err := s.dispatcher.Dispatch(ctx, requestID, analysis.ID, in.Matrix)
	if err != nil {
		s.logger.Errorf(ctx, "[Analysis] dispatch failed: %v", err)
		failed := mdclassify.Failed(etanalysis.FailureDispatchFailed, err.Error())
		outcome = &failed
	}
	if outcome != nil {
		return s.Complete(ctx, analysis.ID, *outcome)
	}

	// 5. Smart Wait
	if listener == nil {
		return analysis, nil
	}

	if _, err := listener.Wait(ctx, wait); err != nil {
		s.logger.Infof(ctx, "[Analysis] smart wait ended without result: %v", err)
		return analysis, nil
	}

	return s.repo.Get(ctx, analysis.ID)
}

// Complete 写入分类结果
// 已是终态时原样返回（重复回调）；否则更新、释放会话锁并发布完成通知
func (s *AnalysisService) Complete(ctx context.Context, analysisID string, outcome mdclassify.Outcome) (*etanalysis.Analysis, error) {
	ctx = logger.WithAnalysisID(ctx, analysisID)

	analysis, err := s.repo.Get(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if analysis.Status.IsTerminal() {
		s.logger.Warnf(ctx, "[Analysis] already %s, ignoring duplicate outcome", analysis.Status)
		return analysis, nil
	}

	// 1. 状态迁移
	if outcome.Succeeded() {
		err = analysis.Succeed(outcome.Records, outcome.Message)
	} else {
		err = analysis.Fail(outcome.FailureKind, outcome.FailureReason)
	}
	if err != nil {
		return nil, err
	}

	// 2. 持久化
	if err := s.repo.Update(ctx, analysis); err != nil {
		return nil, fmt.Errorf("update analysis failed: %w", err)
	}

	// 3. 释放会话锁
	s.releaseSession(ctx, analysis)

	// 4. 通知失败不影响结果，轮询仍可读到
	if err := s.notices.Notify(ctx, analysis); err != nil {
		s.logger.Warnf(ctx, "[Analysis] publish notice failed: %v", err)
	}

	s.logger.Infof(ctx, "[Analysis] completed with status %s", analysis.Status)
	return analysis, nil
}

// Get 查询分析
func (s *AnalysisService) Get(ctx context.Context, analysisID string) (*etanalysis.Analysis, error) {
	if analysisID == "" {
		return nil, errorx.BadRequest("analysis id is required")
	}
	return s.repo.Get(ctx, analysisID)
}

func (s *AnalysisService) releaseSession(ctx context.Context, analysis *etanalysis.Analysis) {
	if analysis.SessionID == "" {
		return
	}
	if err := s.repo.ReleaseSession(ctx, analysis.SessionID, analysis.ID); err != nil {
		s.logger.Warnf(ctx, "[Analysis] release session %s failed: %v", analysis.SessionID, err)
	}
}

// IsNotFound 是否为分析不存在
func IsNotFound(err error) bool {
	return errors.Is(err, errorx.ErrAnalysisNotFound)
}
