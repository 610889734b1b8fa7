package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/larder/internal/predict"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "larder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "larder.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Auth.MaxFailures)
	assert.Equal(t, predict.DefaultPolicy(), cfg.Prediction.Policy())
	assert.Equal(t, 2, cfg.Prediction.DefaultLowStockThreshold)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_ProxiesAndOriginsFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("LARDER_TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.1")
	t.Setenv("LARDER_ALLOWED_ORIGINS", "app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, []string{"app.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
database:
  path: "/var/lib/larder/larder.db"
log:
  level: "debug"
  format: "json"
prediction:
  suggest_ratio: 0.5
  saturation_count: 4
`)
	t.Setenv(PathEnv, path)
	t.Setenv("LARDER_SATURATION_COUNT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/larder/larder.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 0.5, cfg.Prediction.SuggestRatio, 1e-9)
	assert.Equal(t, 8, cfg.Prediction.SaturationCount)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsBadPolicy(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("LARDER_SUGGEST_RATIO", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prediction")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:     ServerConfig{Port: 8080},
			Database:   DatabaseConfig{Path: "x.db"},
			Auth:       AuthConfig{MaxFailures: 5, FailureWindow: time.Minute},
			Prediction: PredictionConfig{SuggestRatio: 0.7, SaturationCount: 5, DefaultLowStockThreshold: 2},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"no failures allowed", func(c *Config) { c.Auth.MaxFailures = 0 }},
		{"zero window", func(c *Config) { c.Auth.FailureWindow = 0 }},
		{"zero saturation", func(c *Config) { c.Prediction.SaturationCount = 0 }},
		{"negative threshold", func(c *Config) { c.Prediction.DefaultLowStockThreshold = -1 }},
		{"hostname proxy", func(c *Config) { c.Server.TrustedProxies = []string{"proxy.local"} }},
		{"bad proxy prefix", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/40"} }},
		{"wildcard origin", func(c *Config) { c.Server.AllowedOrigins = []string{"*"} }},
	}

	base := valid()
	require.NoError(t, base.Validate())
	base.Server.TrustedProxies = []string{"10.0.0.0/8", "::1"}
	base.Server.AllowedOrigins = []string{"*.example.com"}
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
