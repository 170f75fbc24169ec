package mdclassify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
)

// Predictor 远程分类器
type Predictor interface {
	Predict(ctx context.Context, m etecg.SampleMatrix) (*classifier.PredictResponse, error)
}

// Outcome 一次分类的结果，成功时 FailureKind 为空
type Outcome struct {
	Records       []etprediction.PredictionRecord
	Message       string
	FailureKind   etanalysis.FailureKind
	FailureReason string
	Retryable     bool // 临时故障，调用方可以重新提交
}

// Succeeded 是否成功
func (o Outcome) Succeeded() bool {
	return o.FailureKind == ""
}

// Failed 构造失败结果
func Failed(kind etanalysis.FailureKind, reason string) Outcome {
	return Outcome{
		FailureKind:   kind,
		FailureReason: reason,
		Retryable:     kind == etanalysis.FailureClassifierUnavailable || kind == etanalysis.FailureDispatchFailed,
	}
}

// Classify 调用分类器并标准化预测结果
// 任何失败都体现在 Outcome 中，不做自动重试，也不返回模拟数据
func Classify(ctx context.Context, p Predictor, m etecg.SampleMatrix) Outcome {
	resp, err := p.Predict(ctx, m)
	if err != nil {
		return Failed(etanalysis.FailureClassifierUnavailable, err.Error())
	}

	records, err := etprediction.Normalize(resp.Predictions)
	if err != nil {
		return Failed(etanalysis.FailureInvalidPredictionFormat, err.Error())
	}

	return Outcome{Records: records, Message: resp.Message}
}

// ToCallback 转换为回调消息
func (o Outcome) ToCallback(requestID, analysisID string) (*model.ClassifyCallback, error) {
	cb := &model.ClassifyCallback{
		RequestID:   requestID,
		AnalysisID:  analysisID,
		Message:     o.Message,
		ProcessedAt: time.Now().Unix(),
	}

	if !o.Succeeded() {
		cb.Status = model.CallbackStatusFailed
		cb.FailureKind = string(o.FailureKind)
		cb.Error = o.FailureReason
		cb.Retryable = o.Retryable
		return cb, nil
	}

	records := o.Records
	if records == nil {
		records = []etprediction.PredictionRecord{}
	}
	predictions, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	cb.Status = model.CallbackStatusSuccess
	cb.Predictions = predictions
	return cb, nil
}

// OutcomeFromCallback 从回调消息还原结果，成功时重新标准化 predictions
func OutcomeFromCallback(cb *model.ClassifyCallback) (Outcome, error) {
	switch cb.Status {
	case model.CallbackStatusSuccess:
		records, err := etprediction.Normalize(cb.Predictions)
		if err != nil {
			return Failed(etanalysis.FailureInvalidPredictionFormat, err.Error()), nil
		}
		return Outcome{Records: records, Message: cb.Message}, nil

	case model.CallbackStatusFailed:
		kind := etanalysis.FailureKind(cb.FailureKind)
		if kind == "" {
			kind = etanalysis.FailureClassifierUnavailable
		}
		outcome := Failed(kind, cb.Error)
		outcome.Retryable = cb.Retryable
		outcome.Message = cb.Message
		return outcome, nil

	default:
		return Outcome{}, errors.New("unknown callback status: " + cb.Status)
	}
}
