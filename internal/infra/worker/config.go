package worker

import (
	"fmt"
	"log/slog"
	"time"

	"webintel/internal/pkg/config"
)

// Config holds the settings of the cache janitor process.
//
// Environment variables:
//   - CACHE_CLEANUP_SCHEDULE: cron expression (default "*/30 * * * *")
//   - WORKER_TIMEZONE: IANA timezone for the schedule (default "UTC")
//   - WORKER_CLEANUP_TIMEOUT: upper bound of one sweep (default 5m)
//   - HEALTH_PORT: health and metrics port (default 9091)
//   - WORKER_RUN_ON_START: sweep once before the first tick (default true)
type Config struct {
	CleanupSchedule string
	Timezone        string
	CleanupTimeout  time.Duration
	HealthPort      int
	RunOnStart      bool
}

// DefaultConfig returns a half-hourly sweep in UTC.
func DefaultConfig() Config {
	return Config{
		CleanupSchedule: "*/30 * * * *",
		Timezone:        "UTC",
		CleanupTimeout:  5 * time.Minute,
		HealthPort:      9091,
		RunOnStart:      true,
	}
}

// Validate checks every field and reports all failures together.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CleanupSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cleanup schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.CleanupTimeout, time.Second, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("cleanup timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// Location returns the schedule timezone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv loads the janitor settings fail-open: an invalid value
// is logged, counted in metrics and replaced by its default. The returned
// configuration is always valid.
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) Config {
	cfg := DefaultConfig()
	warn := func(field, warning string) {
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
	fallback := false

	result := config.LoadEnvWithFallback("CACHE_CLEANUP_SCHEDULE", cfg.CleanupSchedule, config.ValidateCronSchedule)
	cfg.CleanupSchedule = result.Value.(string)
	fallback = metrics.Apply("cleanup_schedule", result, warn) || fallback

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	fallback = metrics.Apply("timezone", result, warn) || fallback

	result = config.LoadEnvDuration("WORKER_CLEANUP_TIMEOUT", cfg.CleanupTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, time.Hour)
	})
	cfg.CleanupTimeout = result.Value.(time.Duration)
	fallback = metrics.Apply("cleanup_timeout", result, warn) || fallback

	result = config.LoadEnvInt("HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	fallback = metrics.Apply("health_port", result, warn) || fallback

	result = config.LoadEnvBool("WORKER_RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = result.Value.(bool)
	fallback = metrics.Apply("run_on_start", result, warn) || fallback

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()
	return cfg
}
