// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig                `yaml:"server"`
	Log      LogConfig                   `yaml:"log"`
	Resolver ResolverConfig              `yaml:"resolver"`
	Invoker  InvokerConfig               `yaml:"invoker"`
	Store    StoreConfig                 `yaml:"store"`
	Metrics  MetricsConfig               `yaml:"metrics"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
	Pieces   PiecesConfig                `yaml:"pieces"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr            string          `yaml:"addr"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig configures the per-client API rate limit. A zero
// RequestsPerMinute disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// ResolverConfig configures descriptor fetching and the session catalog
// cache.
type ResolverConfig struct {
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	Cache        CacheConfig   `yaml:"cache"`
}

// CacheConfig selects the catalog cache backend: none, memory or redis.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the Redis connection used by the redis cache backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// InvokerConfig configures action invocation.
type InvokerConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects the invocation audit backend: memory or sqlite.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled                     bool `yaml:"enabled"`
	observability.MetricsConfig `yaml:",inline"`
}

// PiecesConfig configures built-in pieces.
type PiecesConfig struct {
	Harvest HarvestConfig `yaml:"harvest"`
}

// HarvestConfig configures the Harvest piece.
type HarvestConfig struct {
	BaseURL   string `yaml:"baseURL"`
	UserAgent string `yaml:"userAgent"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       RateLimitConfig{RequestsPerMinute: 600, Burst: 60},
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Resolver: ResolverConfig{
			FetchTimeout: 30 * time.Second,
			Cache: CacheConfig{
				Backend: "memory",
				TTL:     15 * time.Minute,
				Redis:   RedisConfig{Address: "localhost:6379", Prefix: "soap-plugin:"},
			},
		},
		Invoker: InvokerConfig{Timeout: 30 * time.Second},
		Store:   StoreConfig{Backend: "memory", Path: "data/invocations.db"},
		Metrics: MetricsConfig{Enabled: true, MetricsConfig: observability.DefaultMetricsConfig()},
	}
}

// LoadFromFile reads a YAML file, expands ${VAR} references from the
// environment and overlays it on Default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data on Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and their required settings.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Resolver.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if c.Resolver.Cache.Redis.Address == "" {
			return fmt.Errorf("config: resolver.cache.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown resolver.cache.backend %q", c.Resolver.Cache.Backend)
	}
	switch c.Store.Backend {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q", c.Store.Backend)
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("config: server.rateLimit values must not be negative")
	}
	return nil
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: invalid log.level %q: %w", l.Level, err)
	}
	return level, nil
}
