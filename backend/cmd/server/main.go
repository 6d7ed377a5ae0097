package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lf-go-app/backend/internal/app"
	"lf-go-app/backend/internal/bootstrap"
	"lf-go-app/backend/internal/config"
	applogger "lf-go-app/backend/internal/infra/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger, err := applogger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer applogger.Sync()
	logger := zapLogger.Sugar()

	runtimeCfg, err := config.LoadRuntimeConfig()
	if err != nil {
		logger.Fatalw("load runtime config failed", "error", err)
	}

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		logger.Fatalw("bootstrap failed", "error", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.Errorw("resource cleanup error", "error", err)
		}
	}()

	logger.Infow("mysql connected",
		"user", resources.Config.MySQL.Username,
		"host", resources.Config.MySQL.Host,
		"database", resources.Config.MySQL.Database,
	)
	if resources.Redis != nil {
		logger.Infow("redis connected", "host", resources.Config.Redis.Host, "db", resources.Config.Redis.DB)
	}

	application, err := bootstrap.BuildApplication(ctx, logger, resources, runtimeCfg)
	if err != nil {
		logger.Fatalw("build application failed", "error", err)
	}

	srv := &http.Server{
		Addr:    ":" + runtimeCfg.Port,
		Handler: application.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infow("shutdown signal received")
	case err := <-errCh:
		logger.Fatalw("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
