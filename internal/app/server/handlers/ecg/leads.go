package ecg

import (
	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/request"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/response"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
)

// Leads 解析文本并返回 12 导联序列
// POST /api/v1/ecg/leads
func (h *ECGHandler) Leads(c *gin.Context) {
	var req request.ParseECGRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	m, err := h.parser.Parse(req.Data)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ginx.Success(c, response.FromLeadSeries(m))
}

// UploadLeads 解析上传文件并返回 12 导联序列
// POST /api/v1/ecg/leads/upload (multipart, field "file")
func (h *ECGHandler) UploadLeads(c *gin.Context) {
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

	ginx.Success(c, response.FromLeadSeries(m))
}
