// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server     Server
	Log        Log
	Store      Store
	Redis      RedisConfig
	AuditTrail AuditTrail
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"AUDITTRAIL_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"AUDITTRAIL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Store selects where audit events live.
type Store struct {
	Driver      string `env:"AUDITTRAIL_STORE" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	MaxOpenConn int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConn int    `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
}

// RedisConfig configures the settings store. An empty URL keeps settings in memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	SettingsKey  string        `env:"REDIS_SETTINGS_KEY" envDefault:"audittrail:settings"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// AuditTrail holds the audit trail runtime knobs.
type AuditTrail struct {
	SweepInterval        time.Duration `env:"AUDITTRAIL_SWEEP_INTERVAL" envDefault:"10m"`
	TrimBatchSize        int           `env:"AUDITTRAIL_TRIM_BATCH_SIZE" envDefault:"500"`
	DefaultPageSize      int           `env:"AUDITTRAIL_DEFAULT_PAGE_SIZE" envDefault:"10"`
	DefaultRetentionDays int           `env:"AUDITTRAIL_DEFAULT_RETENTION_DAYS" envDefault:"10"`
}

// FromEnv parses the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when AUDITTRAIL_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown AUDITTRAIL_STORE %q", c.Store.Driver)
	}
	if c.AuditTrail.DefaultRetentionDays < 1 {
		return errors.New("AUDITTRAIL_DEFAULT_RETENTION_DAYS must be 1 or greater")
	}
	if c.AuditTrail.TrimBatchSize < 1 {
		return errors.New("AUDITTRAIL_TRIM_BATCH_SIZE must be 1 or greater")
	}
	return nil
}
