package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/logger"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"SERVER_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" env:"SERVER_RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" env:"SERVER_RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" env:"SERVER_CACHE_TTL_SECONDS"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"DATABASE_DRIVER"` // postgres or sqlite
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns           int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" env:"DATABASE_CONN_MAX_LIFETIME_MINUTES"`
	LogQueries             bool   `yaml:"log_queries" env:"DATABASE_LOG_QUERIES"`
}

// LedgerConfig bounds the conditional-write retry loop.
type LedgerConfig struct {
	Backend        string        `yaml:"backend" env:"LEDGER_BACKEND"` // sql or redis
	MaxAttempts    int           `yaml:"max_attempts" env:"LEDGER_MAX_ATTEMPTS"`
	TimeoutSeconds int           `yaml:"timeout_seconds" env:"LEDGER_TIMEOUT_SECONDS"`
	Timeout        time.Duration `yaml:"-"`
}

// RedisConfig is used when the ledger backend is redis.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs" env:"REDIS_ADDRS" envSeparator:","`
	Password string   `yaml:"password" env:"REDIS_PASSWORD"`
}

// SchedulerConfig controls the daily occurrence creation job.
type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
	Timezone      string `yaml:"timezone" env:"SCHEDULER_TIMEZONE"`
	Hour          uint   `yaml:"hour" env:"SCHEDULER_HOUR"`
	Minute        uint   `yaml:"minute" env:"SCHEDULER_MINUTE"`
	LookaheadDays int    `yaml:"lookahead_days" env:"SCHEDULER_LOOKAHEAD_DAYS"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"PUSH_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"PUSH_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"PUSH_SUBJECT"`
	TTL        int    `yaml:"ttl" env:"PUSH_TTL"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" env:"WORKER_POOL_SIZE"`
}

// Load reads the configuration from the given path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "sql"
	}
	if cfg.Ledger.TimeoutSeconds <= 0 {
		cfg.Ledger.TimeoutSeconds = 10
	}
	cfg.Ledger.Timeout = time.Duration(cfg.Ledger.TimeoutSeconds) * time.Second

	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.LookaheadDays <= 0 {
		cfg.Scheduler.LookaheadDays = 7
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logger.Infof("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

func (cfg *Config) validate() error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}
	switch cfg.Ledger.Backend {
	case "sql":
	case "redis":
		if len(cfg.Redis.Addrs) == 0 {
			return fmt.Errorf("ledger.backend is redis but redis.addrs is empty")
		}
	default:
		return fmt.Errorf("unsupported ledger.backend %q", cfg.Ledger.Backend)
	}
	if cfg.Scheduler.Hour > 23 || cfg.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler time %02d:%02d is out of range", cfg.Scheduler.Hour, cfg.Scheduler.Minute)
	}
	return nil
}
