package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEBUG", "SORT_SERVER_HOST", "SORT_SERVER_PORT", "HEALTH_SERVER_PORT",
		"MAX_MESSAGE_SIZE", "MAX_SESSIONS", "READ_TIMEOUT", "PROCESS_TIMEOUT",
		"WRITE_TIMEOUT", "DEFAULT_SORT_COLUMN", "HOST", "PORT",
	} {
		t.Setenv(key, "")
	}
}

// TestLoadFromEnvDefaults verifies the defaults with an empty environment.
func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "8081", cfg.HealthServerPort)
	assert.Equal(t, 16*1024, cfg.MaxMessageSize)
	assert.Equal(t, 64, cfg.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.ProcessTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "FECHA_VENTA", cfg.DefaultSortColumn)
}

// TestLoadFromEnvOverrides verifies every variable is honoured.
func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("SORT_SERVER_HOST", "192.168.1.4")
	t.Setenv("SORT_SERVER_PORT", "9000")
	t.Setenv("HEALTH_SERVER_PORT", "9001")
	t.Setenv("MAX_MESSAGE_SIZE", "1Mi")
	t.Setenv("MAX_SESSIONS", "8")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("PROCESS_TIMEOUT", "1m")
	t.Setenv("WRITE_TIMEOUT", "500ms")
	t.Setenv("DEFAULT_SORT_COLUMN", "ID_VENTA")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "192.168.1.4:9000", cfg.Addr())
	assert.Equal(t, 1<<20, cfg.MaxMessageSize)
	assert.Equal(t, 8, cfg.MaxSessions)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.ProcessTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, "ID_VENTA", cfg.DefaultSortColumn)
}

// TestLegacyHostPort checks the fallback to the script-era variable names.
func TestLegacyHostPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "7070")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost:7070", cfg.Addr())

	t.Setenv("SORT_SERVER_PORT", "7071")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost:7071", cfg.Addr(), "new name wins over legacy name")
}

// TestLoadFromEnvValidation covers rejected configurations.
func TestLoadFromEnvValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "SORT_SERVER_PORT", "http"},
		{"port out of range", "SORT_SERVER_PORT", "70000"},
		{"same ports", "SORT_SERVER_PORT", "8081"},
		{"bad quantity", "MAX_MESSAGE_SIZE", "lots"},
		{"fractional quantity", "MAX_MESSAGE_SIZE", "100m"},
		{"zero sessions", "MAX_SESSIONS", "0"},
		{"negative timeout", "READ_TIMEOUT", "-1s"},
		{"blank column", "DEFAULT_SORT_COLUMN", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}
