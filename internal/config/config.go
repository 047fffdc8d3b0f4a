// Package config provides configuration management for the option-chain tracker.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"nse-oi-tracker/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

// ProviderConfig holds upstream data provider configuration.
type ProviderConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	LookupTimeout    time.Duration `mapstructure:"lookup_timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

// BackfillConfig holds backfill session configuration.
type BackfillConfig struct {
	Start        string        `mapstructure:"start"` // HH:MM
	StepMinutes  int           `mapstructure:"step_minutes"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// StoreConfig holds snapshot history persistence configuration.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"` // sqlite, redis, memory
	Path     string `mapstructure:"path"`
	Key      string `mapstructure:"key"`
	RedisURL string `mapstructure:"redis_url"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// UIConfig holds terminal display configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
	Strikes      int  `mapstructure:"strikes"` // shown on each side of ATM
}

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/nse-oi-tracker"
	}
	return filepath.Join(home, ".config", "nse-oi-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyEnvOverrides(cfg)
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "history.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider.base_url", "http://localhost:3001")
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.lookup_timeout", 5*time.Second)
	v.SetDefault("provider.user_agent", "NSEOITracker/1.0")
	v.SetDefault("provider.failure_threshold", 5)
	v.SetDefault("provider.breaker_timeout", 30*time.Second)

	v.SetDefault("backfill.start", "09:15")
	v.SetDefault("backfill.step_minutes", 15)
	v.SetDefault("backfill.request_delay", 200*time.Millisecond)
	v.SetDefault("backfill.max_attempts", 2)

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.path", filepath.Join(configDir, "history.db"))
	v.SetDefault("store.key", "nse_oi_history")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.strikes", 10)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OI_PROVIDER_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("OI_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("OI_REDIS_URL"); v != "" {
		cfg.Store.RedisURL = v
	}
	if v := os.Getenv("OI_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OI_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// RedactedRedisURL returns the Redis URL with any password masked.
func (c StoreConfig) RedactedRedisURL() string {
	u, err := url.Parse(c.RedisURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return errors.NewValidationError("store.backend", c.Store.Backend, "must be sqlite, redis or memory")
	}
	if c.Store.Key == "" {
		return errors.NewValidationError("store.key", c.Store.Key, "must not be empty")
	}

	if _, err := time.Parse("15:04", c.Backfill.Start); err != nil {
		return errors.NewValidationError("backfill.start", c.Backfill.Start, "must be HH:MM")
	}
	if c.Backfill.StepMinutes <= 0 {
		return errors.NewValidationError("backfill.step_minutes", c.Backfill.StepMinutes, "must be positive")
	}
	if c.Backfill.MaxAttempts < 1 {
		return errors.NewValidationError("backfill.max_attempts", c.Backfill.MaxAttempts, "must be at least 1")
	}
	if c.Backfill.RequestDelay < 0 {
		return errors.NewValidationError("backfill.request_delay", c.Backfill.RequestDelay, "must not be negative")
	}

	if c.Provider.LookupTimeout <= 0 {
		return errors.NewValidationError("provider.lookup_timeout", c.Provider.LookupTimeout, "must be positive")
	}

	return nil
}
