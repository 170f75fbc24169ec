package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/errorx"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// MsgInvalidECGFormat 数据格式错误的统一提示
const MsgInvalidECGFormat = "Invalid ECG data format. Please check your input."

// ErrorHandler 统一错误处理中间件
// handler 通过 c.Error 记录错误后直接返回，由此处映射为 HTTP 响应
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		var (
			bizErr    *errorx.BusinessError
			formatErr *etecg.FormatError
			shapeErr  *etecg.ShapeError
		)

		switch {
		case errors.As(err, &bizErr):
			ginx.ErrorWithDetails(c, bizErr.Code, bizErr.Message, toDetails(bizErr.Details))

		case errors.As(err, &formatErr):
			log.Infof(ctx, "[HTTP] rejected input: %v", formatErr)
			ginx.ErrorWithDetails(c, http.StatusBadRequest, MsgInvalidECGFormat, []ginx.ErrorDetail{
				{Path: "data", Info: formatErr.Error()},
			})

		case errors.As(err, &shapeErr):
			ginx.ErrorWithDetails(c, http.StatusBadRequest, shapeErr.Error(), []ginx.ErrorDetail{
				{Path: "data", Info: "expected 4096 samples of 12 leads"},
			})

		case errors.Is(err, errorx.ErrSubmissionInFlight):
			ginx.Conflict(c, err.Error())

		case errors.Is(err, errorx.ErrAnalysisNotFound):
			ginx.NotFound(c, err.Error())

		case errors.Is(err, classifier.ErrClassifierUnavailable):
			log.Warnf(ctx, "[HTTP] classifier unavailable: %v", err)
			ginx.Error(c, http.StatusBadGateway, "Classifier service unavailable")

		default:
			log.Errorf(ctx, "[HTTP] internal error: %v", err)
			ginx.InternalError(c, "Internal server error")
		}
	}
}

func toDetails(details []errorx.ErrorDetail) []ginx.ErrorDetail {
	if len(details) == 0 {
		return nil
	}
	out := make([]ginx.ErrorDetail, 0, len(details))
	for _, d := range details {
		out = append(out, ginx.ErrorDetail{Path: d.Path, Info: d.Info})
	}
	return out
}
