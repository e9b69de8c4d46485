// Package server provides configuration helpers that define runtime defaults,
// validation, and per-connection limits for the presence service.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `envconfig:"BURST" default:"5"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port     string `envconfig:"SERVER_PORT" default:":8080"`
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	AllowedOrigins []string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize int64           `envconfig:"MAX_MESSAGE_SIZE" default:"512"`
	RateLimit      RateLimitConfig `envconfig:"RATE_LIMIT"`

	// Outbound side of every connection.
	SendBufferSize int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	PongWait       time.Duration `envconfig:"PONG_WAIT" default:"60s"`

	NotifyUndelivered bool          `envconfig:"NOTIFY_UNDELIVERED" default:"false"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func defaultConfig() Config {
	return Config{
		Port:     ":8080",
		Env:      "development",
		LogLevel: "info",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 512,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		SendBufferSize:  256,
		WriteTimeout:    10 * time.Second,
		PongWait:        60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig reads the configuration from the environment, loading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized, nil
}

// sanitizeConfig replaces unusable values with their defaults.
func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.Env == "" {
		cfg.Env = def.Env
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}

// pingPeriod is how often the write pump pings; it must stay below PongWait.
func (c Config) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}
