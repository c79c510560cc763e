package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(configPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig(false)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), *cfg)
	require.False(t, cfg.IsProd())

	ttl, err := cfg.HotCacheTTL()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, ttl)
}

func TestLoadConfigLayers(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  host: db.internal
  name: poems
elasticsearch:
  enabled: true
  addresses: "http://es1:9200, http://es2:9200"
recommend:
  hot_window_days: 14
`)
	t.Setenv(configPathEnvVar, path)
	t.Setenv("DATABASE_HOST", "db.override")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("RECOMMEND_CACHE_TTL", "30s")

	cfg, err := LoadConfig(false)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "db.override", cfg.Database.Host)
	require.Equal(t, "poems", cfg.Database.Name)
	require.Equal(t, 5432, cfg.Database.Port)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, 14, cfg.Recommend.HotWindowDays)
	require.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.ElasticAddresses())

	ttl, err := cfg.HotCacheTTL()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, ttl)
	require.Contains(t, cfg.Database.ConnectionInfo(), "host=db.override")
}

func TestLoadConfigProd(t *testing.T) {
	t.Setenv(configPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig(true)
	require.Error(t, err)

	// Production refuses the development secrets.
	t.Setenv(configPathEnvVar, writeConfig(t, "server:\n  port: 80\n"))
	_, err = LoadConfig(true)
	require.Error(t, err)

	t.Setenv(configPathEnvVar, writeConfig(t, "auth:\n  pepper: p\n  hmac_key: k\n"))
	cfg, err := LoadConfig(true)
	require.NoError(t, err)
	require.True(t, cfg.IsProd())
	require.Equal(t, "prod", cfg.Logging.Mode)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"port":        func(c *Config) { c.Server.Port = 0 },
		"window":      func(c *Config) { c.Recommend.HotWindowDays = -1 },
		"long window": func(c *Config) { c.Recommend.HotWindowDays = 366 },
		"ttl":         func(c *Config) { c.Recommend.CacheTTL = "soon" },
		"es no nodes": func(c *Config) { c.Elasticsearch.Enabled = true; c.Elasticsearch.Addresses = " , " },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
