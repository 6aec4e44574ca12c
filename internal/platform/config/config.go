// Package config loads service configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	Gate     Gate
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"GYMGATE_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"GYMGATE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Postgres configures the attendance and directory database. An empty DSN
// selects the in-memory stores (development and tests).
type Postgres struct {
	DSN          string        `env:"GYMGATE_POSTGRES_DSN"`
	MaxOpenConns int           `env:"GYMGATE_POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"GYMGATE_POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnLifetime time.Duration `env:"GYMGATE_POSTGRES_CONN_LIFETIME" envDefault:"30m"`
}

// Redis configures the directory profile cache. Empty URL disables caching.
type Redis struct {
	URL          string        `env:"GYMGATE_REDIS_URL"`
	ProfileTTL   time.Duration `env:"GYMGATE_REDIS_PROFILE_TTL" envDefault:"5m"`
	DialTimeout  time.Duration `env:"GYMGATE_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"GYMGATE_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"GYMGATE_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka configures the attendance event stream. Empty brokers disable it.
type Kafka struct {
	Brokers []string `env:"GYMGATE_KAFKA_BROKERS" envSeparator:","`
	// InboxSize bounds the in-process event queue between the attendance
	// service and the publishing worker.
	InboxSize int `env:"GYMGATE_KAFKA_INBOX_SIZE" envDefault:"256"`
}

// Auth configures bearer token validation for staff endpoints.
type Auth struct {
	JWTSigningKey string `env:"GYMGATE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
}

// Gate selects which entry paths the subscription gate covers.
type Gate struct {
	// Policy is "manual" (front-desk entries only, the default) or "all".
	Policy string `env:"GYMGATE_GATE_POLICY" envDefault:"manual"`
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
