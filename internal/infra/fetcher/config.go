package fetcher

import (
	"fmt"
	"strings"
	"time"

	"webintel/internal/resilience/retry"
	"webintel/pkg/config"
)

// Timeouts is a (connect, read) pair. Connect bounds dialing and the TLS
// handshake; Read bounds the wait for response headers and for each body
// chunk.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
}

// Total is the worst-case duration of a single attempt before the body
// starts streaming.
func (t Timeouts) Total() time.Duration {
	return t.Connect + t.Read
}

// TimeoutConfig holds the global and per-platform timeouts.
type TimeoutConfig struct {
	FetcherConnect time.Duration
	FetcherRead    time.Duration

	// Platform overrides keyed by platform name. A zero field inherits the
	// fetcher default.
	Platform map[string]Timeouts

	APIDefault        time.Duration
	SubprocessDefault time.Duration
	WebFetch          time.Duration
}

// For returns the effective pair for a platform.
func (t TimeoutConfig) For(platform string) Timeouts {
	out := Timeouts{Connect: t.FetcherConnect, Read: t.FetcherRead}
	if p, ok := t.Platform[platform]; ok {
		if p.Connect > 0 {
			out.Connect = p.Connect
		}
		if p.Read > 0 {
			out.Read = p.Read
		}
	}
	return out
}

// Config holds the configuration for the resilient fetcher.
type Config struct {
	// MaxContentSize is the default response size cap in bytes.
	MaxContentSize int64

	// MaxRedirects bounds redirect hops per request. Each hop is re-validated.
	MaxRedirects int

	// DenyPrivateIPs enables SSRF protection. Only disable for local development.
	DenyPrivateIPs bool

	// UserAgent is sent when the request does not set its own.
	UserAgent string

	// RateLimitRPS paces requests per platform. Zero disables pacing.
	RateLimitRPS float64

	// RateLimitBurst is the token bucket size when pacing is enabled.
	RateLimitBurst int

	Timeouts TimeoutConfig

	// Retry is the default policy; requests may override it.
	Retry retry.Config
}

// platformTimeoutKeys lists platforms with TIMEOUT_{PLATFORM}_{CONNECT,READ} keys.
var platformTimeoutKeys = []string{"twitter", "youtube", "reddit", "github"}

// DefaultConfig returns sensible defaults for content fetching.
func DefaultConfig() Config {
	return Config{
		MaxContentSize: 5_000_000,
		MaxRedirects:   10,
		DenyPrivateIPs: true,
		UserAgent:      "WebIntel/1.0",
		RateLimitBurst: 5,
		Timeouts: TimeoutConfig{
			FetcherConnect:    10 * time.Second,
			FetcherRead:       30 * time.Second,
			Platform:          map[string]Timeouts{"webpage": {Read: 45 * time.Second}},
			APIDefault:        30 * time.Second,
			SubprocessDefault: 60 * time.Second,
			WebFetch:          45 * time.Second,
		},
		Retry: retry.DefaultConfig(),
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.MaxContentSize < 1024 || c.MaxContentSize > 100*1024*1024 {
		return fmt.Errorf("max content size must be between 1KB and 100MB, got %d", c.MaxContentSize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 20 {
		return fmt.Errorf("max redirects must be between 0 and 20, got %d", c.MaxRedirects)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must be non-negative, got %v", c.RateLimitRPS)
	}

	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got %d", c.RateLimitBurst)
	}

	if c.Timeouts.FetcherConnect <= 0 || c.Timeouts.FetcherRead <= 0 {
		return fmt.Errorf("fetcher timeouts must be positive, got connect=%v read=%v",
			c.Timeouts.FetcherConnect, c.Timeouts.FetcherRead)
	}

	for name, t := range c.Timeouts.Platform {
		if t.Connect < 0 || t.Read < 0 {
			return fmt.Errorf("timeouts for %s must be non-negative", name)
		}
	}

	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got %d", c.Retry.MaxRetries)
	}

	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		return fmt.Errorf("jitter fraction must be between 0 and 1, got %v", c.Retry.JitterFraction)
	}

	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1, got %v", c.Retry.Multiplier)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Unset keys keep their defaults; malformed values log a warning and fall
// back. The assembled config is validated before return.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.MaxContentSize = config.GetEnvInt64("FETCH_MAX_CONTENT_SIZE", cfg.MaxContentSize)
	cfg.MaxRedirects = config.GetEnvInt("FETCH_MAX_REDIRECTS", cfg.MaxRedirects)
	cfg.DenyPrivateIPs = config.GetEnvBool("FETCH_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	cfg.UserAgent = config.GetEnvString("FETCH_USER_AGENT", cfg.UserAgent)
	cfg.RateLimitRPS = config.GetEnvFloat("FETCH_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = config.GetEnvInt("FETCH_RATE_LIMIT_BURST", cfg.RateLimitBurst)

	t := &cfg.Timeouts
	t.FetcherConnect = config.GetEnvSeconds("TIMEOUT_FETCHER_CONNECT", t.FetcherConnect)
	t.FetcherRead = config.GetEnvSeconds("TIMEOUT_FETCHER_READ", t.FetcherRead)
	t.APIDefault = config.GetEnvSeconds("TIMEOUT_API_DEFAULT", t.APIDefault)
	t.SubprocessDefault = config.GetEnvSeconds("TIMEOUT_SUBPROCESS_DEFAULT", t.SubprocessDefault)
	t.WebFetch = config.GetEnvSeconds("TIMEOUT_WEB_FETCH", t.WebFetch)
	for _, p := range platformTimeoutKeys {
		prefix := "TIMEOUT_" + strings.ToUpper(p)
		pt := Timeouts{
			Connect: config.GetEnvSeconds(prefix+"_CONNECT", 0),
			Read:    config.GetEnvSeconds(prefix+"_READ", 0),
		}
		if pt.Connect > 0 || pt.Read > 0 {
			t.Platform[p] = pt
		}
	}
	// Generic webpages read under the web fetch budget.
	t.Platform["webpage"] = Timeouts{Read: t.WebFetch}

	r := &cfg.Retry
	r.MaxRetries = config.GetEnvInt("RETRY_MAX_RETRIES", r.MaxRetries)
	r.InitialDelay = config.GetEnvDuration("RETRY_INITIAL_DELAY", r.InitialDelay)
	r.MaxDelay = config.GetEnvDuration("RETRY_MAX_DELAY", r.MaxDelay)
	r.Multiplier = config.GetEnvFloat("RETRY_MULTIPLIER", r.Multiplier)
	r.JitterFraction = config.GetEnvFloat("RETRY_JITTER_FRACTION", r.JitterFraction)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
