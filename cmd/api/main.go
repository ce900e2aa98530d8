package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"webintel/internal/app"
	hhttp "webintel/internal/handler/http"
	"webintel/internal/handler/http/requestid"
	hscrape "webintel/internal/handler/http/scrape"
	"webintel/internal/observability/logging"
	"webintel/internal/observability/tracing"
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

	shutdownTracing, err := tracing.InitTracerProvider(ctx, tracing.LoadConfigFromEnv())
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	srvCfg := hhttp.LoadServerConfigFromEnv(logger, config.NewConfigMetrics("api"))
	p, err := app.Build(logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	var ready atomic.Bool
	handler := setupRoutes(logger, srvCfg, p, ready.Load)
	runServer(ctx, logger, srvCfg, handler, &ready)
}

func setupRoutes(logger *slog.Logger, cfg hhttp.ServerConfig, p *app.Pipeline, ready func() bool) http.Handler {
	var rlOpts []hhttp.RateLimiterOption
	if cfg.TrustProxy {
		rlOpts = append(rlOpts, hhttp.WithForwardedHeaders())
		logger.Info("rate limiting: keying clients by forwarding headers")
	}
	limiter := hhttp.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, rlOpts...)

	apiMux := http.NewServeMux()
	hscrape.Register(apiMux, p.Service, p.Cache, hscrape.Config{MaxBatchURLs: cfg.MaxBatchURLs}, logger)

	// probes and metrics stay outside the rate limiter and request timeout
	root := http.NewServeMux()
	root.Handle("/v1/", hhttp.Chain(apiMux,
		limiter.Limit,
		hhttp.InputValidation(int64(cfg.MaxBodyBytes)),
		hhttp.Timeout(cfg.RequestTimeout),
	))
	root.Handle("GET /health", &hhttp.HealthHandler{
		Version:  cfg.Version,
		Cache:    p.Cache,
		Breakers: p.Fetcher,
		Logger:   logger,
	})
	root.Handle("GET /health/ready", &hhttp.ReadyHandler{Ready: ready})
	root.Handle("GET /health/live", &hhttp.LiveHandler{})
	root.Handle("GET /metrics", hhttp.MetricsHandler())

	return hhttp.Chain(root,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.MetricsMiddleware,
	)
}

func runServer(ctx context.Context, logger *slog.Logger, cfg hhttp.ServerConfig, handler http.Handler, ready *atomic.Bool) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", cfg.Addr), slog.Any("error", err))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("version", cfg.Version))
		errCh <- srv.Serve(ln)
	}()
	ready.Store(true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ready.Store(false)
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
