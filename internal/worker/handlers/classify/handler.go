package classify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/errorutil"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
)

// callbackPublishTimeout 回调发布不受任务超时影响
const callbackPublishTimeout = 10 * time.Second

// Deps Handler 依赖
type Deps struct {
	Predictor     mdclassify.Predictor
	Publisher     mdclassify.JobPublisher
	CallbackQueue string
	Logger        logger.Logger
}

// Handler ECG 分类 Handler
type Handler struct {
	deps Deps
	meta *framework.JobMeta
	data model.ClassifyBusinessData

	matrix    etecg.SampleMatrix
	validated bool
	outcome   mdclassify.Outcome
}

// NewFactory 创建 Handler 构造函数
func NewFactory(deps Deps) framework.HandlerFactory {
	return func(ctx context.Context, meta *framework.JobMeta, payload json.RawMessage) (framework.BusinessHandler, error) {
		return NewHandler(deps, meta, payload)
	}
}

// NewHandler 解析业务数据
func NewHandler(deps Deps, meta *framework.JobMeta, payload json.RawMessage) (*Handler, error) {
	var data model.ClassifyBusinessData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errorutil.NonRetriable("unmarshal business data failed", err)
	}

	if data.AnalysisID == "" {
		data.AnalysisID = meta.ID
	}
	if data.AnalysisID == "" {
		return nil, errorutil.NonRetriablef("analysis_id is required")
	}

	return &Handler{deps: deps, meta: meta, data: data}, nil
}

// Handle 执行处理链
func (h *Handler) Handle(ctx context.Context) error {
	return framework.NewPreProcessor(h.PreProcess, h.Process, h.PostProcess).Run(ctx)
}

// PreProcess 校验矩阵，无效输入作为失败结果回调，不中断处理链
func (h *Handler) PreProcess(ctx context.Context) error {
	matrix, err := etecg.NewSampleMatrix(h.data.ECGData)
	if err != nil {
		h.outcome = mdclassify.Failed(etanalysis.FailureInvalidInput, err.Error())
		h.deps.Logger.Warnf(ctx, "[ClassifyHandler] invalid input: %v", err)
		return nil
	}

	h.matrix = matrix
	h.validated = true
	return nil
}

// Process 调用分类器
func (h *Handler) Process(ctx context.Context) error {
	if !h.validated {
		return nil
	}

	h.outcome = mdclassify.Classify(ctx, h.deps.Predictor, h.matrix)
	if !h.outcome.Succeeded() {
		h.deps.Logger.Warnf(ctx, "[ClassifyHandler] classify failed: %s: %s", h.outcome.FailureKind, h.outcome.FailureReason)
	}
	return nil
}

// PostProcess 发布回调，发布失败时消息不 ACK 以便重新投递
func (h *Handler) PostProcess(ctx context.Context) error {
	callback, err := h.outcome.ToCallback(h.meta.RequestID, h.data.AnalysisID)
	if err != nil {
		return errorutil.NonRetriable("build callback failed", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callbackPublishTimeout)
	defer cancel()

	if err := h.deps.Publisher.Publish(pubCtx, h.deps.CallbackQueue, callback); err != nil {
		return errorutil.Retriable("publish callback failed", err)
	}

	h.deps.Logger.Infof(ctx, "[ClassifyHandler] callback sent: status=%s", callback.Status)
	return nil
}
