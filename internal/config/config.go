package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

// Config holds every runtime setting, loaded from the environment. The JWT
// secret is the only required value: the realtime layer refuses to start
// without a working authentication gate.
type Config struct {
	Host string `env:"MEETPULSE_HOST,default=0.0.0.0"`
	Port int    `env:"MEETPULSE_PORT,default=8080"`

	JWTSecret string `env:"MEETPULSE_JWT_SECRET,required=true"`

	ReadTimeout  time.Duration `env:"MEETPULSE_HTTP_READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"MEETPULSE_HTTP_WRITE_TIMEOUT,default=30s"`

	PingInterval time.Duration `env:"MEETPULSE_WS_PING_INTERVAL,default=30s"`
	PongTimeout  time.Duration `env:"MEETPULSE_WS_PONG_TIMEOUT,default=60s"`
	EventsPerMin int           `env:"MEETPULSE_EVENTS_PER_MINUTE,default=600"`

	PushEndpoint string        `env:"MEETPULSE_PUSH_ENDPOINT"`
	PushKey      string        `env:"MEETPULSE_PUSH_KEY"`
	PushTimeout  time.Duration `env:"MEETPULSE_PUSH_TIMEOUT,default=10s"`

	LogLevel string `env:"MEETPULSE_LOG_LEVEL,default=info"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("WebSocket pong timeout must exceed the ping interval")
	}
	if c.EventsPerMin < 0 {
		return fmt.Errorf("events per minute cannot be negative")
	}
	if c.PushEndpoint != "" && c.PushTimeout <= 0 {
		return fmt.Errorf("push timeout must be positive")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
