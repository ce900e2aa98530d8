package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"webintel/internal/domain/entity"
	"webintel/pkg/config"
)

// Config holds the content cache configuration.
type Config struct {
	// Dir is the directory holding one <sha256>.json file per entry.
	Dir string

	// TTLMetadata applies to records whose values drift quickly.
	TTLMetadata time.Duration

	// TTLContent applies to article bodies, transcripts and post text.
	TTLContent time.Duration

	// MaxEntries bounds the number of stored entries.
	MaxEntries int

	// MaxSizeMB bounds the total size of the entry files.
	MaxSizeMB int

	// Enabled turns the cache into a no-op when false.
	Enabled bool
}

// maxEntryBytes is the hard cap on one serialized entry.
const maxEntryBytes = 1_000_000

// DefaultDir returns $XDG_CACHE_HOME/webintel, falling back to
// ~/.cache/webintel and finally to the system temp directory.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "webintel")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "webintel")
	}
	return filepath.Join(os.TempDir(), "webintel")
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Dir:         DefaultDir(),
		TTLMetadata: time.Hour,
		TTLContent:  24 * time.Hour,
		MaxEntries:  100,
		MaxSizeMB:   50,
		Enabled:     true,
	}
}

// TTL returns the lifetime for a TTL class. Unknown classes use the
// content lifetime.
func (c Config) TTL(class entity.TTLClass) time.Duration {
	if class == entity.TTLMetadata {
		return c.TTLMetadata
	}
	return c.TTLContent
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("cache dir must not be empty")
	}
	if c.TTLMetadata <= 0 || c.TTLContent <= 0 {
		return fmt.Errorf("cache TTLs must be positive, got metadata=%v content=%v", c.TTLMetadata, c.TTLContent)
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1, got %d", c.MaxEntries)
	}
	if c.MaxSizeMB < 1 {
		return fmt.Errorf("cache max size must be at least 1MB, got %d", c.MaxSizeMB)
	}
	return nil
}

// LoadConfigFromEnv loads the cache configuration from CACHE_* variables.
// TTLs are given in seconds.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Dir = config.GetEnvString("CACHE_DIR", cfg.Dir)
	cfg.TTLMetadata = config.GetEnvSeconds("CACHE_TTL_METADATA", cfg.TTLMetadata)
	cfg.TTLContent = config.GetEnvSeconds("CACHE_TTL_CONTENT", cfg.TTLContent)
	cfg.MaxEntries = config.GetEnvInt("CACHE_MAX_ENTRIES", cfg.MaxEntries)
	cfg.MaxSizeMB = config.GetEnvInt("CACHE_MAX_SIZE_MB", cfg.MaxSizeMB)

	switch strings.ToLower(strings.TrimSpace(os.Getenv("CACHE_ENABLED"))) {
	case "false", "0", "no", "off":
		cfg.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
