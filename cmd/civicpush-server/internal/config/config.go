// Package config provides configuration management for the civicpush server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
	StoreRedis  = "redis"
)

// Config holds all configuration for the civicpush server.
type Config struct {
	// Store backs messages and push activations: memory or sql.
	Store string `env:"STORE" envDefault:"memory"`

	// DeviceStore backs device registrations: memory, sql or redis.
	// Empty means the same as Store.
	DeviceStore string `env:"DEVICE_STORE"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string   `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int      `env:"SERVER_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" envDefault:"sqlite3"` // mysql, postgres, sqlite3
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        int    `env:"DB_PORT" envDefault:"3306"`
	User        string `env:"DB_USER" envDefault:"civicpush"`
	Password    string `env:"DB_PASSWORD"`
	Database    string `env:"DB_NAME" envDefault:"civicpush.db"`
	Prefix      string `env:"DB_PREFIX" envDefault:"civicpush_"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Prefix string `env:"REDIS_PREFIX" envDefault:"civicpush:"`
}

// WorkerConfig holds activation worker configuration.
type WorkerConfig struct {
	BatchSize           int           `env:"WORKER_BATCH_SIZE" envDefault:"100"`
	Interval            time.Duration `env:"WORKER_INTERVAL" envDefault:"15s"`
	MaxAttempts         int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`
	EnableNotifications bool          `env:"WORKER_ENABLE_NOTIFICATIONS" envDefault:"true"`
}

// Load loads configuration from the process environment.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validated()
}

// LoadFrom loads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validated()
}

func (c *Config) validated() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// EffectiveDeviceStore returns the backend of device registrations.
func (c *Config) EffectiveDeviceStore() string {
	if c.DeviceStore == "" {
		return c.Store
	}
	return c.DeviceStore
}

// UsesSQL reports whether any store needs a database connection.
func (c *Config) UsesSQL() bool {
	return c.Store == StoreSQL || c.EffectiveDeviceStore() == StoreSQL
}

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Store, validation.Required, validation.In(StoreMemory, StoreSQL)),
		validation.Field(&c.DeviceStore, validation.In(StoreMemory, StoreSQL, StoreRedis)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	if c.UsesSQL() {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.EffectiveDeviceStore() == StoreRedis {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Validate checks the listen address.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Validate checks the driver and, for server databases, the credentials.
func (d DatabaseConfig) Validate() error {
	networked := d.Driver == "mysql" || d.Driver == "postgres"
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("mysql", "postgres", "sqlite3")),
		validation.Field(&d.Database, validation.Required),
		validation.Field(&d.Host, validation.When(networked, validation.Required)),
		validation.Field(&d.Password, validation.When(networked, validation.Required)),
	)
}

// Validate checks the Redis address.
func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
	)
}

// Validate checks the worker schedule.
func (w WorkerConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.BatchSize, validation.Min(1)),
		validation.Field(&w.Interval, validation.Min(time.Second)),
		validation.Field(&w.MaxAttempts, validation.Min(1)),
	)
}

// GetDSN returns the database connection string based on driver.
func (d *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(d.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			d.Host, d.Port, d.User, d.Password, d.Database)
	case "sqlite3":
		return d.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
