package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into a fresh temp dir so no stray config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Geocode.Threads)
	assert.Equal(t, 0, cfg.Geocode.Window)
	assert.Equal(t, "", cfg.Geocode.NullValue)
	assert.Equal(t, "mi", cfg.Geocode.Unit)
	assert.Equal(t, "https://maps.googleapis.com/maps/api/geocode/json", cfg.Geocode.BaseURL)
	assert.Equal(t, 30, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, "csv", cfg.Geocode.Format)
	assert.Empty(t, cfg.Geocode.Fields)
	assert.Empty(t, cfg.Geocode.APIKey)
	assert.Equal(t, "sqlite", cfg.Credential.Driver)
	assert.Equal(t, "geocoding.db", cfg.Credential.DatabaseURL)
	assert.Equal(t, "command_geocoding", cfg.Credential.Realm)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
geocode:
  threads: 16
  unit: km
  null_value: "N/A"
  fields: [home_address, work_address]
credential:
  driver: postgres
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Geocode.Threads)
	assert.Equal(t, "km", cfg.Geocode.Unit)
	assert.Equal(t, "N/A", cfg.Geocode.NullValue)
	assert.Equal(t, []string{"home_address", "work_address"}, cfg.Geocode.Fields)
	assert.Equal(t, "postgres", cfg.Credential.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Geocode.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
geocode:
  threads: 16
  unit: km
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEOCODING_GEOCODE_THREADS", "4")
	t.Setenv("GEOCODING_GEOCODE_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Geocode.Threads)
	assert.Equal(t, "env-key", cfg.Geocode.APIKey)
	assert.Equal(t, "km", cfg.Geocode.Unit)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("geocode: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Geocode.Threads = 8
	cfg.Geocode.Unit = "mi"
	cfg.Geocode.TimeoutSecs = 30
	cfg.Credential.Driver = "sqlite"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero threads", func(c *Config) { c.Geocode.Threads = 0 }, "threads"},
		{"negative window", func(c *Config) { c.Geocode.Window = -1 }, "window"},
		{"bad unit", func(c *Config) { c.Geocode.Unit = "ft" }, "unit"},
		{"zero timeout", func(c *Config) { c.Geocode.TimeoutSecs = 0 }, "timeout_secs"},
		{"bad driver", func(c *Config) { c.Credential.Driver = "mysql" }, "credential.driver"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoding.log")
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", File: path}))
	zap.L().Info("hello")
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
