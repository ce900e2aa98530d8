package worker

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "*/30 * * * *", cfg.CleanupSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.CleanupTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.True(t, cfg.RunOnStart)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad schedule", func(c *Config) { c.CleanupSchedule = "every now and then" }, "cleanup schedule"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"timeout too short", func(c *Config) { c.CleanupTimeout = time.Millisecond }, "cleanup timeout"},
		{"privileged port", func(c *Config) { c.HealthPort = 80 }, "health port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Paris"
	assert.Equal(t, "Europe/Paris", cfg.Location().String())

	cfg.Timezone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CACHE_CLEANUP_SCHEDULE", "0 * * * *")
	t.Setenv("WORKER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("WORKER_CLEANUP_TIMEOUT", "2m")
	t.Setenv("HEALTH_PORT", "9200")
	t.Setenv("WORKER_RUN_ON_START", "false")

	m := NewMetricsWith(prometheus.NewRegistry())
	cfg := LoadConfigFromEnv(slog.Default(), m)

	assert.Equal(t, "0 * * * *", cfg.CleanupSchedule)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 2*time.Minute, cfg.CleanupTimeout)
	assert.Equal(t, 9200, cfg.HealthPort)
	assert.False(t, cfg.RunOnStart)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FallbackActive))
}

func TestLoadConfigFromEnv_FallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("CACHE_CLEANUP_SCHEDULE", "not a schedule")
	t.Setenv("HEALTH_PORT", "22")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := NewMetricsWith(prometheus.NewRegistry())

	cfg := LoadConfigFromEnv(logger, m)

	def := DefaultConfig()
	assert.Equal(t, def.CleanupSchedule, cfg.CleanupSchedule)
	assert.Equal(t, def.HealthPort, cfg.HealthPort)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("cleanup_schedule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("health_port", "default")))
	assert.Contains(t, buf.String(), "configuration fallback applied")
	require.NoError(t, cfg.Validate())
}
