package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, StoreDriverJSON, cfg.Store.Driver)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 120, cfg.Backend.ChatTimeoutSeconds)
	assert.Equal(t, 5, cfg.Payment.PollIntervalSeconds)
	assert.Equal(t, 0, cfg.Payment.MaxWatchMinutes)
	assert.True(t, cfg.Auth.HashPasswords)
	assert.False(t, cfg.Redis.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "HTTP_PORT=9090\nBACKEND_URL=http://backend.internal:8000\nSTORE_DRIVER=sqlite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	t.Setenv("PAYMENT_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("HTTP_PORT", "9191")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.App.HTTPPort, "environment wins over app.env")
	assert.Equal(t, "http://backend.internal:8000", cfg.Backend.URL)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Payment.PollIntervalSeconds)
}

func TestConfig_Validate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:     "bad port",
			mutate:   func(c *Config) { c.App.HTTPPort = "http" },
			errorMsg: "invalid HTTP_PORT",
		},
		{
			name:     "unknown driver",
			mutate:   func(c *Config) { c.Store.Driver = "mongo" },
			errorMsg: "unknown STORE_DRIVER",
		},
		{
			name:     "json driver without path",
			mutate:   func(c *Config) { c.Store.JSONPath = "" },
			errorMsg: "STORE_JSON_PATH",
		},
		{
			name:     "relative backend url",
			mutate:   func(c *Config) { c.Backend.URL = "/api" },
			errorMsg: "invalid BACKEND_URL",
		},
		{
			name:     "zero poll interval",
			mutate:   func(c *Config) { c.Payment.PollIntervalSeconds = 0 },
			errorMsg: "PAYMENT_POLL_INTERVAL_SECONDS",
		},
		{
			name:     "rate limit without burst",
			mutate:   func(c *Config) { c.RateLimit.BurstCapacity = 0 },
			errorMsg: "rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "flyte", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=flyte port=5432 sslmode=disable", db.DSN())
}
