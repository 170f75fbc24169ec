package response

import (
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
)

// AnalysisResponse 分析响应
type AnalysisResponse struct {
	AnalysisID    string                          `json:"analysis_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID     string                          `json:"session_id,omitempty"`
	Status        string                          `json:"status" example:"SUCCEEDED"`
	FailureKind   string                          `json:"failure_kind,omitempty" example:"CLASSIFIER_UNAVAILABLE"`
	FailureReason string                          `json:"failure_reason,omitempty"`
	Message       string                          `json:"message,omitempty"`
	Results       []etprediction.RiskAnnotation   `json:"results"` // 第一条记录的展示行
	Records       []etprediction.PredictionRecord `json:"records"` // 全部标准化记录
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

// ModelInfoResponse 模型信息
type ModelInfoResponse struct {
	Status           string   `json:"status" example:"loaded"`
	InputShape       string   `json:"input_shape,omitempty"` // 如 "(1, 4096, 12)"
	OutputConditions []string `json:"output_conditions,omitempty"`
	ModelSummary     string   `json:"model_summary,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// FromAnalysisEntity 领域对象 → 响应
func FromAnalysisEntity(a *etanalysis.Analysis) *AnalysisResponse {
	resp := &AnalysisResponse{
		AnalysisID:    a.ID,
		SessionID:     a.SessionID,
		Status:        string(a.Status),
		FailureKind:   string(a.FailureKind),
		FailureReason: a.FailureReason,
		Message:       a.Message,
		Results:       []etprediction.RiskAnnotation{},
		Records:       a.Records,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	if resp.Records == nil {
		resp.Records = []etprediction.PredictionRecord{}
	}
	if primary, ok := a.Primary(); ok {
		resp.Results = etprediction.Annotate(primary)
	}

	return resp
}

// FromModelInfo 分类器模型信息 → 响应
func FromModelInfo(info *classifier.ModelInfo) *ModelInfoResponse {
	return &ModelInfoResponse{
		Status:           info.Status,
		InputShape:       info.InputShape,
		OutputConditions: info.OutputConditions,
		ModelSummary:     info.ModelSummary,
		Message:          info.Message,
	}
}
