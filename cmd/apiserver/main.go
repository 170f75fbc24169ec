package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/config"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/apiserver.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	appLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// 3. 初始化应用（HTTP Server 与回调 Consumer）
	app, cleanup, err := InitializeApp(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer cleanup()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: app.Engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// 4. 启动 HTTP Server
	g.Go(func() error {
		appLogger.Infof(gctx, "[App] starting HTTP server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 5. 启动回调 Consumer
	if app.CallbackConsumer != nil {
		g.Go(func() error {
			appLogger.Infof(gctx, "[App] starting callback consumer")
			return app.CallbackConsumer.Start(gctx)
		})
	}

	// 6. 优雅停机
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Infof(context.Background(), "[App] shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Errorf(context.Background(), "[App] stopped with error: %v", err)
		return
	}

	appLogger.Infof(context.Background(), "[App] stopped gracefully")
}
