package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/config"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/consumer"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdnotice"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/repo/rpanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/services/svanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/services/svcallback"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/mq/lmstfy"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/memory"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/redis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/analysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/ecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/routers"
)

// App apiserver 组件集合
type App struct {
	Engine           *gin.Engine
	CallbackConsumer *consumer.CallbackConsumer // inline 模式下为 nil
}

// InitializeApp 按配置组装依赖，返回清理函数
func InitializeApp(cfg *config.Config, log logger.Logger) (*App, func(), error) {
	ctx := context.Background()
	cleanup := func() {}

	// 1. 数据接入
	ingestCfg := mdingest.Config{
		LenientCSV: cfg.Ingest.LenientCSV,
		MaxBytes:   cfg.Ingest.MaxBytes,
	}
	if cfg.Ingest.AllowPlaceholder {
		seed := cfg.Ingest.SampleSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		ingestCfg.Sampler = mdingest.NewSeededSampler(seed)
	}
	parser := mdingest.NewParser(ingestCfg, log)

	// 2. 分类器客户端
	classifierClient := classifier.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, log)

	// 3. 分析存储与完成通知
	var (
		repo    rpanalysis.AnalysisRepository
		notices *mdnotice.NoticeModule
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init redis failed: %w", err)
		}
		cleanup = func() { _ = rdb.Close() }

		repo = rpanalysis.NewRedisAnalysisRepository(rdb, cfg.Analysis.TTL, cfg.Analysis.SessionLockTTL)
		notices = mdnotice.NewRedisNoticeModule(redis.NewPubSubClient(rdb))
		log.Infof(ctx, "[App] redis connected: %s", cfg.Redis.Addr)
	} else {
		repo = rpanalysis.NewMemoryAnalysisRepository(cfg.Analysis.TTL, cfg.Analysis.SessionLockTTL)
		notices = mdnotice.NewMemoryNoticeModule(memory.NewPubSub())
		log.Infof(ctx, "[App] using in-process analysis store")
	}

	// 4. 分类调度
	var (
		dispatcher   mdclassify.Dispatcher
		lmstfyClient *lmstfy.Client
	)
	if cfg.UsesQueue() {
		lmstfyClient = lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token, cfg.Lmstfy.JobTTL)
		dispatcher = mdclassify.NewQueueDispatcher(lmstfyClient, cfg.Lmstfy.Queue, log)
		log.Infof(ctx, "[App] classifier mode: queue (%s)", cfg.Lmstfy.Queue)
	} else {
		dispatcher = mdclassify.NewInlineDispatcher(classifierClient, log)
		log.Infof(ctx, "[App] classifier mode: inline (%s)", cfg.Classifier.BaseURL)
	}

	// 5. Service 层
	analysisService := svanalysis.NewAnalysisService(repo, dispatcher, notices, log)

	// 6. 路由
	engine := routers.SetupRoutes(
		ecg.NewECGHandler(parser, cfg.Ingest.SampleSeed),
		analysis.NewAnalysisHandler(parser, analysisService, cfg.Analysis.MaxWait),
		model.NewModelHandler(classifierClient),
		log,
	)

	app := &App{Engine: engine}

	// 7. 回调消费（仅队列模式）
	if lmstfyClient != nil {
		app.CallbackConsumer = consumer.NewCallbackConsumer(
			lmstfyClient,
			svcallback.NewCallbackService(analysisService, log),
			consumer.Config{
				QueueName:    cfg.Lmstfy.CallbackQueue,
				Timeout:      cfg.Lmstfy.Timeout,
				TTR:          cfg.Lmstfy.TTR,
				PollInterval: cfg.Lmstfy.PollInterval,
			},
			log,
		)
	}

	return app, cleanup, nil
}
