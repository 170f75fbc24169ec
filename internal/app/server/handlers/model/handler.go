package model

import (
	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/response"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
)

// ModelHandler 模型信息 HTTP 处理器
type ModelHandler struct {
	client *classifier.Client
}

// NewModelHandler 创建模型信息处理器
func NewModelHandler(client *classifier.Client) *ModelHandler {
	return &ModelHandler{client: client}
}

// Info 透传分类器模型信息
// GET /api/v1/model-info
func (h *ModelHandler) Info(c *gin.Context) {
	info, err := h.client.ModelInfo(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	ginx.Success(c, response.FromModelInfo(info))
}
