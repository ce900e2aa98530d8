package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"webintel/internal/infra/cache"
	"webintel/internal/infra/worker"
	"webintel/internal/observability/logging"
	"webintel/internal/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if applied, err := config.ApplyOverlay(); err != nil {
		logger.Error("failed to apply config overlay", slog.Any("error", err))
		os.Exit(1)
	} else if len(applied) > 0 {
		logger.Info("config overlay applied", slog.Any("keys", applied))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := worker.NewMetrics()
	cfg := worker.LoadConfigFromEnv(logger, metrics)
	logger.Info("worker configuration loaded",
		slog.String("cleanup_schedule", cfg.CleanupSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("cleanup_timeout", cfg.CleanupTimeout),
		slog.Int("health_port", cfg.HealthPort))

	cacheCfg, err := cache.LoadConfigFromEnv()
	if err != nil {
		logger.Error("invalid cache configuration", slog.Any("error", err))
		os.Exit(1)
	}
	store := cache.New(cacheCfg, cache.WithLogger(logger))
	if !cacheCfg.Enabled {
		logger.Warn("cache disabled, janitor has nothing to sweep")
	}

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), func() any {
		return store.Stats()
	}, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	janitor := worker.NewJanitor(store, cfg.CleanupTimeout, metrics, logger)
	if cfg.RunOnStart {
		if _, err := janitor.RunOnce(ctx); err != nil {
			logger.Warn("initial cache cleanup failed", slog.Any("error", err))
		}
	}

	scheduler, err := janitor.Schedule(ctx, cfg.CleanupSchedule, cfg.Location())
	if err != nil {
		logger.Error("failed to schedule cache cleanup", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CleanupSchedule),
		slog.String("cache_dir", cacheCfg.Dir))

	<-ctx.Done()
	healthServer.SetReady(false)
	<-scheduler.Stop().Done()
	logger.Info("worker stopped")
}
