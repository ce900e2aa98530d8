package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OverlayEnvKey names the environment variable pointing at the YAML overlay.
const OverlayEnvKey = "WEBINTEL_CONFIG_FILE"

// LoadOverlay reads a YAML file of environment-style keys:
//
//	CACHE_DIR: /var/cache/webintel
//	CACHE_MAX_ENTRIES: 500
//	FETCH_DENY_PRIVATE_IPS: true
//
// Scalar values of any YAML type are rendered back to strings. Nested
// mappings and sequences are rejected.
func LoadOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read config overlay: %w", err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config overlay %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for key, node := range doc {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("config overlay key %s: only scalar values are supported", key)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = node.Value
	}
	return out, nil
}

// ApplyOverlay loads the overlay named by WEBINTEL_CONFIG_FILE, if any, and
// exports every key that is not already set in the environment. Real
// environment variables always win. It returns the keys it applied.
func ApplyOverlay() ([]string, error) {
	path := os.Getenv(OverlayEnvKey)
	if path == "" {
		return nil, nil
	}

	values, err := LoadOverlay(path)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(values))
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return applied, fmt.Errorf("apply config overlay key %s: %w", key, err)
		}
		applied = append(applied, key)
	}
	sort.Strings(applied)
	return applied, nil
}
