package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_CACHE_DIR", "/var/cache/webintel")
	assert.Equal(t, "/var/cache/webintel", LoadEnvString("TEST_CACHE_DIR", "/tmp"))

	t.Setenv("TEST_CACHE_DIR", "")
	assert.Equal(t, "/tmp", LoadEnvString("TEST_CACHE_DIR", "/tmp"))
	assert.Equal(t, "/tmp", LoadEnvString("TEST_CACHE_DIR_UNSET", "/tmp"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		validator    func(string) error
		want         string
		wantFallback bool
		wantWarning  string
	}{
		{name: "valid cron", value: "*/15 * * * *", validator: ValidateCronSchedule, want: "*/15 * * * *"},
		{name: "unset keeps default", value: "", validator: ValidateCronSchedule, want: "*/30 * * * *"},
		{name: "no validator", value: "anything", want: "anything"},
		{
			name:         "invalid cron",
			value:        "invalid format",
			validator:    ValidateCronSchedule,
			want:         "*/30 * * * *",
			wantFallback: true,
			wantWarning:  "Invalid TEST_SCHEDULE='invalid format'",
		},
		{
			name:         "invalid timezone",
			value:        "Invalid/Timezone",
			validator:    ValidateTimezone,
			want:         "*/30 * * * *",
			wantFallback: true,
			wantWarning:  "falling back to default '*/30 * * * *'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SCHEDULE", tt.value)

			result := LoadEnvWithFallback("TEST_SCHEDULE", "*/30 * * * *", tt.validator)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning == "" {
				assert.Empty(t, result.Warnings)
				return
			}
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], tt.wantWarning)
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	rangeCheck := func(d time.Duration) error { return ValidateDuration(d, time.Second, time.Hour) }

	tests := []struct {
		name         string
		value        string
		validator    func(time.Duration) error
		want         time.Duration
		wantFallback bool
		wantWarning  string
	}{
		{name: "valid", value: "45s", validator: ValidatePositiveDuration, want: 45 * time.Second},
		{name: "unset", value: "", validator: ValidatePositiveDuration, want: 30 * time.Minute},
		{name: "no validator accepts zero", value: "0s", want: 0},
		{
			name:         "invalid format",
			value:        "not-a-duration",
			validator:    ValidatePositiveDuration,
			want:         30 * time.Minute,
			wantFallback: true,
			wantWarning:  "falling back to default '30m0s'",
		},
		{
			name:         "negative",
			value:        "-30m",
			validator:    ValidatePositiveDuration,
			want:         30 * time.Minute,
			wantFallback: true,
			wantWarning:  "Invalid TEST_TIMEOUT='-30m'",
		},
		{
			name:         "zero rejected",
			value:        "0s",
			validator:    ValidatePositiveDuration,
			want:         30 * time.Minute,
			wantFallback: true,
			wantWarning:  "must be positive",
		},
		{
			name:         "above range",
			value:        "2h",
			validator:    rangeCheck,
			want:         30 * time.Minute,
			wantFallback: true,
			wantWarning:  "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_TIMEOUT", tt.value)

			result := LoadEnvDuration("TEST_TIMEOUT", 30*time.Minute, tt.validator)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning == "" {
				assert.Empty(t, result.Warnings)
				return
			}
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], tt.wantWarning)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	portRange := func(v int) error { return ValidateIntRange(v, 1024, 65535) }

	tests := []struct {
		name         string
		value        string
		validator    func(int) error
		want         int
		wantFallback bool
		wantWarning  string
	}{
		{name: "valid", value: "8080", validator: portRange, want: 8080},
		{name: "unset", value: "", validator: portRange, want: 9090},
		{name: "surrounding spaces", value: " 8081 ", validator: portRange, want: 8081},
		{name: "negative without validator", value: "-5", want: -5},
		{
			name:         "not a number",
			value:        "not-a-number",
			validator:    portRange,
			want:         9090,
			wantFallback: true,
			wantWarning:  "invalid integer format",
		},
		{
			name:         "decimal",
			value:        "80.5",
			validator:    portRange,
			want:         9090,
			wantFallback: true,
			wantWarning:  "Invalid TEST_PORT='80.5'",
		},
		{
			name:         "below minimum",
			value:        "80",
			validator:    portRange,
			want:         9090,
			wantFallback: true,
			wantWarning:  "below minimum",
		},
		{
			name:         "above maximum",
			value:        "70000",
			validator:    portRange,
			want:         9090,
			wantFallback: true,
			wantWarning:  "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_PORT", tt.value)

			result := LoadEnvInt("TEST_PORT", 9090, tt.validator)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning == "" {
				assert.Empty(t, result.Warnings)
				return
			}
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], tt.wantWarning)
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		want         bool
		wantFallback bool
	}{
		{value: "true", want: true},
		{value: "TRUE", want: true},
		{value: "1", want: true},
		{value: "t", want: true},
		{value: "false", want: false},
		{value: "0", want: false},
		{value: "F", want: false},
		{value: "", want: true},
		{value: "yes", want: true, wantFallback: true},
		{value: "maybe", want: true, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv("TEST_ENABLED", tt.value)

			result := LoadEnvBool("TEST_ENABLED", true)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				require.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "invalid boolean format")
			}
		})
	}
}
