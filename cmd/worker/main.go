package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/config"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/mq/lmstfy"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  ECG Classify Worker Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// 3. 初始化队列与分类器
	lmstfyClient := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token, cfg.Lmstfy.JobTTL)
	classifierClient := classifier.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, zapLogger)

	// 4. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, worker.Deps{
		Source:    worker.NewLmstfySource(lmstfyClient),
		Publisher: lmstfyClient,
		Predictor: classifierClient,
	}, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 5. 启动 Manager
	errCh := make(chan error, 1)
	go func() {
		errCh <- mgr.Start()
	}()

	zapLogger.Infof(context.Background(), "[Worker] started, press Ctrl+C to shutdown")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Infof(context.Background(), "[Worker] received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			zapLogger.Errorf(context.Background(), "[Worker] manager stopped: %v", err)
		}
	}

	// 7. 优雅关闭 Manager
	mgr.Shutdown()

	log.Println("========================================")
	log.Println("  Worker exited gracefully")
	log.Println("========================================")
}
