package ecg

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/request"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/response"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
)

// Sample 生成合成 ECG 数据
// GET /api/v1/ecg/sample?seed=42&format=csv
func (h *ECGHandler) Sample(c *gin.Context) {
	var q request.SampleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	seed := h.defaultSeed
	if q.Seed != nil {
		seed = *q.Seed
	} else if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m := mdingest.NewSeededSampler(seed).Generate()

	if q.Format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="ecg_sample.csv"`)
		c.Status(http.StatusOK)
		if err := mdingest.EncodeCSV(c.Writer, m); err != nil {
			_ = c.Error(err)
		}
		return
	}

	ginx.Success(c, response.FromSample(seed, m))
}
