package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/analysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/ecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/middlewares"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	ecgHandler *ecg.ECGHandler,
	analysisHandler *analysis.AnalysisHandler,
	modelHandler *model.ModelHandler,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.CORS())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "ecg-apiserver",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/model-info", modelHandler.Info)

		ecgGroup := v1.Group("/ecg")
		{
			ecgGroup.GET("/sample", ecgHandler.Sample)
			ecgGroup.POST("/leads", ecgHandler.Leads)
			ecgGroup.POST("/leads/upload", ecgHandler.UploadLeads)
		}

		analyses := v1.Group("/analyses")
		{
			analyses.POST("", analysisHandler.Submit)
			analyses.POST("/upload", analysisHandler.Upload)
			analyses.GET("/:id", analysisHandler.Get)
		}
	}

	return r
}
