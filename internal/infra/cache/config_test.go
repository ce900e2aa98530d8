package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webintel/internal/domain/entity"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	cfg := DefaultConfig()

	assert.Equal(t, filepath.Join("/xdg", "webintel"), cfg.Dir)
	assert.Equal(t, time.Hour, cfg.TTLMetadata)
	assert.Equal(t, 24*time.Hour, cfg.TTLContent)
	assert.Equal(t, 100, cfg.MaxEntries)
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.True(t, cfg.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_TTL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Hour, cfg.TTL(entity.TTLMetadata))
	assert.Equal(t, 24*time.Hour, cfg.TTL(entity.TTLContent))
	assert.Equal(t, 24*time.Hour, cfg.TTL("other"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty dir", func(c *Config) { c.Dir = "" }},
		{"zero metadata ttl", func(c *Config) { c.TTLMetadata = 0 }},
		{"negative content ttl", func(c *Config) { c.TTLContent = -time.Second }},
		{"zero entries", func(c *Config) { c.MaxEntries = 0 }},
		{"zero size", func(c *Config) { c.MaxSizeMB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CACHE_DIR", dir)
	t.Setenv("CACHE_TTL_METADATA", "60")
	t.Setenv("CACHE_TTL_CONTENT", "120")
	t.Setenv("CACHE_MAX_ENTRIES", "10")
	t.Setenv("CACHE_MAX_SIZE_MB", "5")
	t.Setenv("CACHE_ENABLED", "off")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, time.Minute, cfg.TTLMetadata)
	assert.Equal(t, 2*time.Minute, cfg.TTLContent)
	assert.Equal(t, 10, cfg.MaxEntries)
	assert.Equal(t, 5, cfg.MaxSizeMB)
	assert.False(t, cfg.Enabled)
}

func TestLoadConfigFromEnv_ValidationError(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "-1")

	_, err := LoadConfigFromEnv()
	assert.ErrorContains(t, err, "configuration validation failed")
}
