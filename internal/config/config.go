package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	ServerPort string `env:"PORT" envDefault:"8080"`
	Debug      bool   `env:"DEBUG"`

	// Database: sqlite (DB_PATH) or postgres/mysql (DATABASE_URL)
	DatabaseType string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./givto.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Login codes are kept in the SQL database unless LOGIN_CODE_STORE=redis
	LoginCodeStore  string        `env:"LOGIN_CODE_STORE" envDefault:"sql"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LoginCodeTTL    time.Duration `env:"LOGIN_CODE_TTL" envDefault:"15m"`
	LoginCodeSecret string        `env:"LOGIN_CODE_SECRET"`

	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"720h"`

	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"10s"`
	SlugMaxAttempts  int           `env:"SLUG_MAX_ATTEMPTS" envDefault:"25"`

	// Mail delivery through Amazon SES; empty SES_FROM_EMAIL disables sending
	AWSRegion    string        `env:"AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string        `env:"SES_FROM_EMAIL"`
	SESFromName  string        `env:"SES_FROM_NAME" envDefault:"Givto"`
	AppBaseURL   string        `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
	MailAttempts int           `env:"MAIL_ATTEMPTS" envDefault:"3"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CodeSecret is the key for login code digests, falling back to SESSION_SECRET
func (c *Config) CodeSecret() string {
	if c.LoginCodeSecret != "" {
		return c.LoginCodeSecret
	}
	return c.SessionSecret
}

func (c *Config) validate() error {
	switch c.LoginCodeStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported login code store: %s", c.LoginCodeStore)
	}
	if c.LoginCodeTTL <= 0 {
		return fmt.Errorf("LOGIN_CODE_TTL must be positive")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT must be positive")
	}
	if c.SlugMaxAttempts < 1 {
		return fmt.Errorf("SLUG_MAX_ATTEMPTS must be at least 1")
	}
	if c.MailAttempts < 1 {
		return fmt.Errorf("MAIL_ATTEMPTS must be at least 1")
	}
	return nil
}
