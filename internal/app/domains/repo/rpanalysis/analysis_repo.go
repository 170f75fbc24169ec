package rpanalysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/entity"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
)

// AnalysisRepository 分析仓储接口
// 记录为临时状态，超过 TTL 自动过期
type AnalysisRepository interface {
	// Create 保存新分析，ID 已存在时返回错误
	Create(ctx context.Context, analysis *etanalysis.Analysis) error

	// Get 查询分析，不存在时返回 errorx.ErrAnalysisNotFound
	Get(ctx context.Context, analysisID string) (*etanalysis.Analysis, error)

	// Update 覆盖已存在的分析，保持原 TTL
	Update(ctx context.Context, analysis *etanalysis.Analysis) error

	// AcquireSession 获取会话提交锁，已被持有时返回 false
	AcquireSession(ctx context.Context, sessionID, token string) (bool, error)

	// ReleaseSession 释放会话提交锁，仅当 token 匹配时删除
	ReleaseSession(ctx context.Context, sessionID, token string) error
}

// toPO 领域对象 → 存储模型
func toPO(a *etanalysis.Analysis) (*entity.Analysis, error) {
	po := &entity.Analysis{
		ID:            a.ID,
		SessionID:     a.SessionID,
		Status:        string(a.Status),
		Message:       a.Message,
		FailureKind:   string(a.FailureKind),
		FailureReason: a.FailureReason,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	if a.Records != nil {
		records, err := json.Marshal(a.Records)
		if err != nil {
			return nil, fmt.Errorf("marshal records failed: %w", err)
		}
		po.Records = records
	}

	return po, nil
}

// toDomain 存储模型 → 领域对象
func toDomain(po *entity.Analysis) (*etanalysis.Analysis, error) {
	a := &etanalysis.Analysis{
		ID:            po.ID,
		SessionID:     po.SessionID,
		Status:        etanalysis.Status(po.Status),
		Message:       po.Message,
		FailureKind:   etanalysis.FailureKind(po.FailureKind),
		FailureReason: po.FailureReason,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}

	if len(po.Records) > 0 {
		var records []etprediction.PredictionRecord
		if err := json.Unmarshal(po.Records, &records); err != nil {
			return nil, fmt.Errorf("unmarshal records failed: %w", err)
		}
		a.Records = records
	}

	return a, nil
}
