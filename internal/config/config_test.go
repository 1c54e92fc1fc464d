package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8585/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.API.UploadTimeout)
	assert.Equal(t, 2, cfg.API.SuggestMinimum)
	assert.Equal(t, time.Minute, cfg.Cache.VolatileTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ReferenceTTL)
	assert.Equal(t, 20, cfg.Feed.PageLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
api:
  base_url: https://api.tezga.rs/api
  timeout: 5s
cache:
  volatile_ttl: 30s
feed:
  page_limit: 40
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tezga.yaml"), yaml, 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.tezga.rs/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Cache.VolatileTTL)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Minute, cfg.Cache.ReferenceTTL)
	assert.Equal(t, 40, cfg.Feed.PageLimit)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("api:\n  base_url: https://file.example/api\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tezga.yaml"), yaml, 0o644))
	chdir(t, dir)
	t.Setenv("TEZGA_API_BASE_URL", "https://env.example/api")
	t.Setenv("TEZGA_FEED_PAGE_LIMIT", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, 12, cfg.Feed.PageLimit)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = " " }},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"schemeless base url", func(c *Config) { c.API.BaseURL = "localhost:8585/api" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"zero volatile ttl", func(c *Config) { c.Cache.VolatileTTL = 0 }},
		{"negative reference ttl", func(c *Config) { c.Cache.ReferenceTTL = -time.Minute }},
		{"zero page limit", func(c *Config) { c.Feed.PageLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
