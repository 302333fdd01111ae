package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gemini-playground/internal/bootstrap"
	"gemini-playground/internal/config"
	"gemini-playground/internal/pkg/logger"
	httptransport "gemini-playground/internal/transport/http"
)

func main() {
	ctx := context.Background()

	env, err := config.ValidateEnvName(envOr("APP_ENV", "dev"))
	if err != nil {
		log.Fatalf("invalid APP_ENV: %v", err)
	}
	if err := config.LoadDotenv(env); err != nil {
		log.Fatalf("load dotenv failed: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	zlog, logFile, err := logger.New(logger.Options{
		Dir:      cfg.App.LogDir,
		Prefix:   "server",
		Timezone: cfg.App.Timezone,
		IsProd:   env == "prd",
	})
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("Processing "+env+" environment", zap.String("log_file", logFile))

	app, err := bootstrap.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("bootstrap failed", zap.Error(err))
	}
	app.LogFile = logFile
	defer func() {
		if err := app.Close(); err != nil {
			zlog.Error("close resources failed", zap.Error(err))
		}
	}()

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(server, zlog)
}

func waitForShutdown(server *http.Server, zlog *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
