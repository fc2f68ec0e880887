package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://63bedcf7f5cfc0949b634fc8.mockapi.io/users", cfg.Source.URL)
	assert.Equal(t, 15*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 5, cfg.Breaker.MaxFailures)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ViewTTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "patients.events", cfg.Redis.Channel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
source:
  url: http://upstream.local/patients
  timeout: 2s
redis:
  url: redis://localhost:6379/0
log:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://upstream.local/patients", cfg.Source.URL)
	assert.Equal(t, 2*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Minute, cfg.Cache.ViewTTL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PATIENTS_SOURCE_URL", "http://env.local/users")
	t.Setenv("PATIENTS_SERVER_PORT", "7070")
	t.Setenv("PATIENTS_RATE_LIMIT_ENABLED", "false")
	t.Setenv("PATIENTS_CACHE_VIEW_TTL", "30s")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "http://env.local/users", cfg.Source.URL)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.ViewTTL)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Server: ServerConfig{Port: 8080}, Source: SourceConfig{URL: "http://x"}}
	assert.NoError(t, cfg.Validate())

	noURL := cfg
	noURL.Source.URL = ""
	assert.Error(t, noURL.Validate())

	badPort := cfg
	badPort.Server.Port = 70000
	assert.Error(t, badPort.Validate())
}
