package config

import (
	"fmt"
	"time"

	"github.com/dukerupert/larder/internal/predict"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Prediction PredictionConfig `yaml:"prediction"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"LARDER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"LARDER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"LARDER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"LARDER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"LARDER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LARDER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TrustedProxies are addresses or CIDR ranges whose CF-Connecting-IP and
	// X-Forwarded-For headers are believed. Empty trusts no one.
	TrustedProxies []string `yaml:"trusted_proxies" env:"LARDER_TRUSTED_PROXIES" env-separator:","`
	// AllowedOrigins are extra Origin host patterns allowed to open /ws.
	// Same-origin upgrades are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins" env:"LARDER_ALLOWED_ORIGINS" env-separator:","`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"LARDER_DB_PATH" env-default:"larder.db"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LARDER_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LARDER_LOG_FORMAT" env-default:"text"`
}

// AuthConfig bounds failed Basic auth attempts per client address.
type AuthConfig struct {
	MaxFailures   int           `yaml:"max_failures"   env:"LARDER_AUTH_MAX_FAILURES"   env-default:"10"`
	FailureWindow time.Duration `yaml:"failure_window" env:"LARDER_AUTH_FAILURE_WINDOW" env-default:"1m"`
}

type PredictionConfig struct {
	SuggestRatio             float64 `yaml:"suggest_ratio"               env:"LARDER_SUGGEST_RATIO"               env-default:"0.7"`
	SaturationCount          int     `yaml:"saturation_count"            env:"LARDER_SATURATION_COUNT"            env-default:"5"`
	DefaultLowStockThreshold int     `yaml:"default_low_stock_threshold" env:"LARDER_DEFAULT_LOW_STOCK_THRESHOLD" env-default:"2"`
}

// Policy returns the prediction policy described by the config.
func (p PredictionConfig) Policy() predict.Policy {
	return predict.Policy{
		SuggestRatio:    p.SuggestRatio,
		SaturationCount: p.SaturationCount,
	}
}
