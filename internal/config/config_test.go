package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")
	configYAML := `
api:
  base_url: https://crawler.example.com/
  root: /api/v2
  timeout_seconds: 45
  max_rps: 2.5
  burst: 3
realtime:
  push_root: wss://crawler.example.com/ws
  reconnect: false
  reconnect_interval_ms: 500
  reconnect_attempts: 2
prefs:
  provider: redis
  redis_addr: redis:6379
  redis_prefix: ops
export:
  provider: gcs
  gcs_bucket: exports-bucket
server:
  port: 9090
logging:
  development: false
tracing:
  enabled: true
results:
  page_size: 50
presets:
  xhs-daily:
    platforms: [xiaohongshu]
    keywords: lipstick
    crawler_type: search
    limit: 200
    priority: high
    filters:
      min_likes: 10
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://crawler.example.com/api/v2", cfg.APIURL())
	require.Equal(t, 45*time.Second, cfg.RequestTimeout())
	require.False(t, cfg.Realtime.Reconnect)
	require.Equal(t, 500*time.Millisecond, cfg.ReconnectInterval())
	require.Equal(t, 2, cfg.Realtime.ReconnectAttempts)
	require.Equal(t, "redis", cfg.Prefs.Provider)
	require.Equal(t, "gcs", cfg.Export.Provider)
	require.Equal(t, 9090, cfg.Server.Port)
	require.False(t, cfg.Logging.Development)
	require.InDelta(t, 2.5, cfg.API.MaxRPS, 1e-9)
	require.Equal(t, 3, cfg.API.Burst)
	require.True(t, cfg.Tracing.Enabled)
	require.Equal(t, "crawler-console", cfg.Tracing.ServiceName)
	require.Equal(t, 50, cfg.Results.PageSize)

	preset, ok := cfg.Preset("xhs-daily")
	require.True(t, ok)
	require.Equal(t, []crawler.Platform{crawler.Xiaohongshu}, preset.Platforms)
	require.Equal(t, crawler.TypeSearch, preset.CrawlerType)
	require.Equal(t, 200, preset.Limit)
	require.Equal(t, crawler.PriorityHigh, preset.Priority)
	require.NotNil(t, preset.Filters.MinLikes)
	require.Equal(t, 10, *preset.Filters.MinLikes)
	require.NoError(t, preset.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", cfg.APIURL())
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())
	require.Equal(t, "ws://localhost:8000/ws", cfg.Realtime.PushRoot)
	require.True(t, cfg.Realtime.Reconnect)
	require.Equal(t, 3*time.Second, cfg.ReconnectInterval())
	require.Equal(t, 5, cfg.Realtime.ReconnectAttempts)
	require.Equal(t, "badger", cfg.Prefs.Provider)
	require.Equal(t, crawler.DefaultPageSize, cfg.Results.PageSize)
	_, ok := cfg.Preset("missing")
	require.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		API:      APIConfig{BaseURL: "http://localhost:8000", Root: "/api/v1", TimeoutSeconds: 30},
		Realtime: RealtimeConfig{PushRoot: "ws://localhost:8000/ws", ReconnectIntervalMs: 3000, ReconnectAttempts: 5, EventBuffer: 8},
		Prefs:    PrefsConfig{Provider: "memory"},
		Export:   ExportConfig{Provider: "local", Dir: "exports"},
		Server:   ServerConfig{Port: 8090},
		Results:  ResultsConfig{PageSize: 20},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name string
		edit func(*Config)
		want string
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }, "api.timeout_seconds"},
		{"negative rps", func(c *Config) { c.API.MaxRPS = -1 }, "api.max_rps"},
		{"http push root", func(c *Config) { c.Realtime.PushRoot = "http://x/ws" }, "realtime.push_root"},
		{"zero interval", func(c *Config) { c.Realtime.ReconnectIntervalMs = 0 }, "realtime.reconnect_interval_ms"},
		{"negative attempts", func(c *Config) { c.Realtime.ReconnectAttempts = -1 }, "realtime.reconnect_attempts"},
		{"zero buffer", func(c *Config) { c.Realtime.EventBuffer = 0 }, "realtime.event_buffer"},
		{"unknown prefs", func(c *Config) { c.Prefs.Provider = "etcd" }, "prefs.provider"},
		{"badger without dir", func(c *Config) { c.Prefs = PrefsConfig{Provider: "badger"} }, "prefs.dir"},
		{"redis without addr", func(c *Config) { c.Prefs = PrefsConfig{Provider: "redis"} }, "prefs.redis_addr"},
		{"gcs without bucket", func(c *Config) { c.Export = ExportConfig{Provider: "gcs"} }, "export.gcs_bucket"},
		{"unknown export", func(c *Config) { c.Export.Provider = "s3" }, "export.provider"},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"odd page size", func(c *Config) { c.Results.PageSize = 15 }, "results.page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.edit(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
