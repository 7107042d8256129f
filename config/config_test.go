package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 5, cfg.Generate.MaxTurns)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flowkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: console
telemetry:
  enabled: true
  otlp_endpoint: collector:4317
  sample_rate: 0.25
redis:
  addr: redis:6379
  ttl: 30m
generate:
  max_turns: 9
`), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 9, cfg.Generate.MaxTurns)

	// Untouched sections keep their defaults.
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	t.Setenv("FLOWKIT_LOG_LEVEL", "error")
	t.Setenv("FLOWKIT_REDIS_DB", "3")
	t.Setenv("FLOWKIT_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("FLOWKIT_REDIS_TTL", "1h")
	t.Setenv("FLOWKIT_TELEMETRY_DEV", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Telemetry.Dev)
}

func TestLoadCustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().WithConfigPath("/does/not/exist.yaml").Load()
	assert.Error(t, err)
}

func TestLoadBadEnvValueFails(t *testing.T) {
	t.Setenv("FLOWKIT_REDIS_DB", "not-a-number")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []func(*Config){
		func(c *Config) { c.Log.Level = "verbose" },
		func(c *Config) { c.Log.Format = "xml" },
		func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.OTLPEndpoint = "" },
		func(c *Config) { c.Telemetry.SampleRate = 1.5 },
		func(c *Config) { c.Generate.MaxTurns = 0 },
	}
	for _, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, cfg.Validate())
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console", Development: true})
	require.NoError(t, err)
	logger.Debug("configured")

	_, err = NewLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
