package analysis

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/request"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/response"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/services/svanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
)

// AnalysisHandler 分析 HTTP 处理器
type AnalysisHandler struct {
	parser  *mdingest.Parser
	service *svanalysis.AnalysisService
	maxWait time.Duration
}

// NewAnalysisHandler 创建分析处理器实例
func NewAnalysisHandler(parser *mdingest.Parser, service *svanalysis.AnalysisService, maxWait time.Duration) *AnalysisHandler {
	return &AnalysisHandler{
		parser:  parser,
		service: service,
		maxWait: maxWait,
	}
}

// Submit 解析文本并提交分析
// POST /api/v1/analyses?wait=10
func (h *AnalysisHandler) Submit(c *gin.Context) {
	wait, ok := h.waitDuration(c)
	if !ok {
		return
	}

	var req request.SubmitAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	m, err := h.parser.Parse(req.Data)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.submit(c, m, req.SessionID, wait)
}

// Upload 解析上传文件并提交分析
// POST /api/v1/analyses/upload?wait=10 (multipart, fields "file" and optional "session_id")
func (h *AnalysisHandler) Upload(c *gin.Context) {
	wait, ok := h.waitDuration(c)
	if !ok {
		return
	}

	open, err := ginx.FormFileOpener(c, "file")
	if err != nil {
		ginx.BadRequest(c, "file is required")
		return
	}

	m, err := h.parser.ParseReader(c.Request.Context(), open)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.submit(c, m, c.PostForm("session_id"), wait)
}

// Get 查询分析（轮询）
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	ginx.Success(c, response.FromAnalysisEntity(a))
}

func (h *AnalysisHandler) submit(c *gin.Context, m etecg.SampleMatrix, sessionID string, wait time.Duration) {
	a, err := h.service.Submit(c.Request.Context(), svanalysis.SubmitInput{
		SessionID: sessionID,
		Matrix:    m,
	}, wait)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if a.Status == etanalysis.StatusSubmitting {
		ginx.Processing(c, a.ID, fmt.Sprintf("/api/v1/analyses/%s", a.ID))
		return
	}

	ginx.Success(c, response.FromAnalysisEntity(a))
}

// waitDuration 解析 wait 参数（秒），上限为 maxWait
func (h *AnalysisHandler) waitDuration(c *gin.Context) (time.Duration, bool) {
	var q request.WaitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return 0, false
	}

	wait := time.Duration(q.Wait) * time.Second
	if wait > h.maxWait {
		wait = h.maxWait
	}
	return wait, true
}
