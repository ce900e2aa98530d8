package http

import (
	"log/slog"
	"time"

	"webintel/internal/pkg/config"
)

// ServerConfig holds the HTTP API settings.
//
// Environment variables:
//   - API_ADDR: listen address (default ":8080")
//   - API_REQUEST_TIMEOUT: per-request bound (default 90s)
//   - API_RATE_LIMIT: requests per client per window (default 60)
//   - API_RATE_WINDOW: rate limit window (default 1m)
//   - API_TRUST_PROXY_HEADERS: key clients by X-Forwarded-For (default false)
//   - API_MAX_BODY_BYTES: request body cap (default 1 MiB)
//   - API_MAX_BATCH_URLS: URLs per batch request (default 20)
//   - VERSION: reported by /health (default "dev")
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	RateLimit      int
	RateWindow     time.Duration
	TrustProxy     bool
	MaxBodyBytes   int
	MaxBatchURLs   int
	Version        string
}

// DefaultServerConfig returns the API defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		RequestTimeout: 90 * time.Second,
		RateLimit:      60,
		RateWindow:     time.Minute,
		MaxBodyBytes:   1 << 20,
		MaxBatchURLs:   20,
		Version:        "dev",
	}
}

// LoadServerConfigFromEnv loads the API settings fail-open: an invalid value
// is logged, counted in metrics and replaced by its default.
func LoadServerConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) ServerConfig {
	cfg := DefaultServerConfig()
	warn := func(field, warning string) {
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
	fallback := false

	result := config.LoadEnvWithFallback("API_ADDR", cfg.Addr, config.ValidateListenAddr)
	cfg.Addr = result.Value.(string)
	fallback = metrics.Apply("addr", result, warn) || fallback

	result = config.LoadEnvDuration("API_REQUEST_TIMEOUT", cfg.RequestTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 10*time.Minute)
	})
	cfg.RequestTimeout = result.Value.(time.Duration)
	fallback = metrics.Apply("request_timeout", result, warn) || fallback

	result = config.LoadEnvInt("API_RATE_LIMIT", cfg.RateLimit, func(v int) error {
		return config.ValidateIntRange(v, 1, 100_000)
	})
	cfg.RateLimit = result.Value.(int)
	fallback = metrics.Apply("rate_limit", result, warn) || fallback

	result = config.LoadEnvDuration("API_RATE_WINDOW", cfg.RateWindow, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, time.Hour)
	})
	cfg.RateWindow = result.Value.(time.Duration)
	fallback = metrics.Apply("rate_window", result, warn) || fallback

	result = config.LoadEnvBool("API_TRUST_PROXY_HEADERS", cfg.TrustProxy)
	cfg.TrustProxy = result.Value.(bool)
	fallback = metrics.Apply("trust_proxy_headers", result, warn) || fallback

	result = config.LoadEnvInt("API_MAX_BODY_BYTES", cfg.MaxBodyBytes, func(v int) error {
		return config.ValidateIntRange(v, 1024, 64<<20)
	})
	cfg.MaxBodyBytes = result.Value.(int)
	fallback = metrics.Apply("max_body_bytes", result, warn) || fallback

	result = config.LoadEnvInt("API_MAX_BATCH_URLS", cfg.MaxBatchURLs, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})
	cfg.MaxBatchURLs = result.Value.(int)
	fallback = metrics.Apply("max_batch_urls", result, warn) || fallback

	cfg.Version = config.LoadEnvString("VERSION", cfg.Version)

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()
	return cfg
}
