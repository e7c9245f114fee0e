// Package config loads and validates console configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// Config captures all console configuration knobs loaded via Viper.
type Config struct {
	API      APIConfig                 `mapstructure:"api"`
	Realtime RealtimeConfig            `mapstructure:"realtime"`
	Prefs    PrefsConfig               `mapstructure:"prefs"`
	Export   ExportConfig              `mapstructure:"export"`
	Server   ServerConfig              `mapstructure:"server"`
	Logging  LoggingConfig             `mapstructure:"logging"`
	Tracing  TracingConfig             `mapstructure:"tracing"`
	Results  ResultsConfig             `mapstructure:"results"`
	Presets  map[string]crawler.Config `mapstructure:"presets"`
}

// APIConfig points the transport at the backend REST root.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Root           string `mapstructure:"root"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// AuthToken seeds the persisted token on startup when set.
	AuthToken string `mapstructure:"auth_token"`
	// MaxRPS caps calls per second against the backend host. Zero disables
	// the limiter.
	MaxRPS float64 `mapstructure:"max_rps"`
	Burst  int     `mapstructure:"burst"`
}

// RealtimeConfig controls the push channel and its reconnect policy.
type RealtimeConfig struct {
	PushRoot            string `mapstructure:"push_root"`
	Reconnect           bool   `mapstructure:"reconnect"`
	ReconnectIntervalMs int    `mapstructure:"reconnect_interval_ms"`
	ReconnectAttempts   int    `mapstructure:"reconnect_attempts"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	EventBuffer         int    `mapstructure:"event_buffer"`
}

// PrefsConfig selects where persisted client state lives.
type PrefsConfig struct {
	Provider    string `mapstructure:"provider"`
	Dir         string `mapstructure:"dir"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// ExportConfig selects where downloaded exports are written.
type ExportConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig controls the local status server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TracingConfig enables OpenTelemetry spans around backend calls.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// ResultsConfig holds result-list defaults.
type ResultsConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// Load builds a Config from disk/environment. With an empty path it searches
// the working directory and $HOME/.crawler-console for console.yaml and falls
// back to defaults when none is found.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("console")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.crawler-console")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.root", "/api/v1")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.max_rps", 0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("realtime.push_root", "ws://localhost:8000/ws")
	v.SetDefault("realtime.reconnect", true)
	v.SetDefault("realtime.reconnect_interval_ms", 3000)
	v.SetDefault("realtime.reconnect_attempts", 5)
	v.SetDefault("realtime.write_timeout_seconds", 10)
	v.SetDefault("realtime.event_buffer", 256)
	v.SetDefault("prefs.provider", "badger")
	v.SetDefault("prefs.dir", ".crawler-console/prefs")
	v.SetDefault("prefs.redis_addr", "localhost:6379")
	v.SetDefault("prefs.redis_db", 0)
	v.SetDefault("prefs.redis_prefix", "crawler-console")
	v.SetDefault("export.provider", "local")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.prefix", "exports")
	v.SetDefault("server.port", 8090)
	v.SetDefault("logging.development", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "crawler-console")
	v.SetDefault("results.page_size", crawler.DefaultPageSize)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := url.Parse(c.API.BaseURL); err != nil || c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be a valid URL")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.API.MaxRPS < 0 {
		return fmt.Errorf("api.max_rps must be >= 0")
	}
	if !strings.HasPrefix(c.Realtime.PushRoot, "ws://") && !strings.HasPrefix(c.Realtime.PushRoot, "wss://") {
		return fmt.Errorf("realtime.push_root must be a ws:// or wss:// URL")
	}
	if c.Realtime.ReconnectIntervalMs <= 0 {
		return fmt.Errorf("realtime.reconnect_interval_ms must be > 0")
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return fmt.Errorf("realtime.reconnect_attempts must be >= 0")
	}
	if c.Realtime.EventBuffer <= 0 {
		return fmt.Errorf("realtime.event_buffer must be > 0")
	}
	switch c.Prefs.Provider {
	case "badger":
		if c.Prefs.Dir == "" {
			return fmt.Errorf("prefs.dir must be set for the badger provider")
		}
	case "redis":
		if c.Prefs.RedisAddr == "" {
			return fmt.Errorf("prefs.redis_addr must be set for the redis provider")
		}
	case "memory":
	default:
		return fmt.Errorf("prefs.provider must be badger, redis or memory")
	}
	switch c.Export.Provider {
	case "local":
		if c.Export.Dir == "" {
			return fmt.Errorf("export.dir must be set for the local provider")
		}
	case "gcs":
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set for the gcs provider")
		}
	case "memory":
	default:
		return fmt.Errorf("export.provider must be local, gcs or memory")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if !validPageSize(c.Results.PageSize) {
		return fmt.Errorf("results.page_size must be one of %v", crawler.PageSizeOptions)
	}
	return nil
}

func validPageSize(n int) bool {
	for _, opt := range crawler.PageSizeOptions {
		if n == opt {
			return true
		}
	}
	return false
}

// APIURL joins the base URL and the API root.
func (c Config) APIURL() string {
	return strings.TrimRight(c.API.BaseURL, "/") + "/" + strings.TrimLeft(c.API.Root, "/")
}

// RequestTimeout converts the API timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// ReconnectInterval converts the reconnect delay into a duration.
func (c Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Realtime.ReconnectIntervalMs) * time.Millisecond
}

// WriteTimeout bounds a single realtime frame write.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.Realtime.WriteTimeoutSeconds) * time.Second
}

// Preset returns a copy of the named crawler preset.
func (c Config) Preset(name string) (crawler.Config, bool) {
	p, ok := c.Presets[name]
	if !ok {
		return crawler.Config{}, false
	}
	return p.Clone(), true
}
