package svcallback

import (
	"context"
	"fmt"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/services/svanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// Completer 写入分类结果
type Completer interface {
	Complete(ctx context.Context, analysisID string, outcome mdclassify.Outcome) (*etanalysis.Analysis, error)
}

// CallbackService 回调处理服务
// 职责：
// 1. 处理 worker 发送的分类回调
// 2. 交由分析服务完成状态迁移与通知
type CallbackService struct {
	completer Completer
	logger    logger.Logger
}

// NewCallbackService 创建回调服务实例
func NewCallbackService(completer Completer, log logger.Logger) *CallbackService {
	return &CallbackService{
		completer: completer,
		logger:    log,
	}
}

// HandleCallback 处理分类回调
// 返回 error 表示处理失败（需要重试）
func (s *CallbackService) HandleCallback(ctx context.Context, callback *model.ClassifyCallback) error {
	ctx = logger.WithTraceID(ctx, callback.RequestID)
	ctx = logger.WithAnalysisID(ctx, callback.AnalysisID)

	s.logger.Infof(ctx, "[Callback] processing callback: status=%s", callback.Status)

	outcome, err := mdclassify.OutcomeFromCallback(callback)
	if err != nil {
		return fmt.Errorf("decode callback failed: %w", err)
	}

	analysis, err := s.completer.Complete(ctx, callback.AnalysisID, outcome)
	if err != nil {
		// 分析已过期，重试无意义
		if svanalysis.IsNotFound(err) {
			s.logger.Warnf(ctx, "[Callback] analysis expired, dropping callback")
			return nil
		}
		return fmt.Errorf("complete analysis failed: %w", err)
	}

	s.logger.Infof(ctx, "[Callback] callback processed: status=%s", analysis.Status)
	return nil
}
