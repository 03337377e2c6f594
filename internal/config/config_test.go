package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Server.RateLimitPerMin)
	assert.Equal(t, "/var/lib/healthai/models", cfg.Models.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Alerts.Enabled)
	assert.False(t, cfg.Alerts.Kafka.Enabled)
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9100
models:
  dir: /tmp/models
database:
  path: ":memory:"
alerts:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/tmp/models", cfg.Models.Dir)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.False(t, cfg.Alerts.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HEALTHAI_SERVER_PORT", "9200")
	t.Setenv("HEALTHAI_LOGGING_LEVEL", "warn")

	cfg, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Models.Dir = ""
	cfg.Logging.Level = "loud"
	cfg.Alerts.Kafka.Enabled = true
	cfg.Alerts.Kafka.Brokers = nil
	cfg.Alerts.Kafka.Topic = ""

	errs := cfg.Validate()
	assert.Len(t, errs, 5)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.Empty(t, DefaultConfig().Validate())
}
