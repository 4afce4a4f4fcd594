// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable with EXTID_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
	StoreRedis    = "redis"
)

// Config is the full server configuration.
type Config struct {
	Server    Server
	Directory Directory
	Store     Store
	Redis     RedisConfig
	Kafka     KafkaConfig
	Telemetry Telemetry
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"EXTID_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"EXTID_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"EXTID_LOG_FORMAT"       envDefault:"json"`
	ShutdownTimeout time.Duration `env:"EXTID_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Directory holds the paging and throttling limits for directory reads.
type Directory struct {
	GetRate         float64 `env:"EXTID_GET_RATE"          envDefault:"100"`
	MaxPageSize     int     `env:"EXTID_MAX_PAGE_SIZE"     envDefault:"100"`
	DefaultPageSize int     `env:"EXTID_DEFAULT_PAGE_SIZE" envDefault:"50"`
	ScanLimit       int     `env:"EXTID_SCAN_LIMIT"        envDefault:"200"`
}

// Store selects and addresses the identifier store backend.
type Store struct {
	Backend        string `env:"EXTID_STORE"           envDefault:"memory"`
	DatabaseURL    string `env:"EXTID_DATABASE_URL"`
	SQLitePath     string `env:"EXTID_SQLITE_PATH"     envDefault:"extid.db"`
	DynamoTable    string `env:"EXTID_DYNAMO_TABLE"    envDefault:"ExternalIdentifier"`
	DynamoEndpoint string `env:"EXTID_DYNAMO_ENDPOINT"`
}

// RedisConfig addresses the Redis store backend.
type RedisConfig struct {
	URL          string        `env:"EXTID_REDIS_URL"`
	PoolSize     int           `env:"EXTID_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"EXTID_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"EXTID_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"EXTID_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"EXTID_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// KafkaConfig enables the Kafka audit sink when Brokers is set.
type KafkaConfig struct {
	Brokers []string `env:"EXTID_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"EXTID_KAFKA_TOPIC"   envDefault:"extid.audit"`
}

// Telemetry enables OTLP trace export when Endpoint is set.
type Telemetry struct {
	Endpoint    string `env:"EXTID_OTEL_ENDPOINT"`
	ServiceName string `env:"EXTID_SERVICE_NAME" envDefault:"extid"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
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
	var errs []error
	d := c.Directory
	if d.GetRate <= 0 {
		errs = append(errs, fmt.Errorf("EXTID_GET_RATE must be positive, got %v", d.GetRate))
	}
	if d.MaxPageSize < 1 {
		errs = append(errs, fmt.Errorf("EXTID_MAX_PAGE_SIZE must be at least 1, got %d", d.MaxPageSize))
	}
	if d.DefaultPageSize < 1 || d.DefaultPageSize > d.MaxPageSize {
		errs = append(errs, fmt.Errorf("EXTID_DEFAULT_PAGE_SIZE must be from 1-%d, got %d", d.MaxPageSize, d.DefaultPageSize))
	}
	if d.ScanLimit < 1 {
		errs = append(errs, fmt.Errorf("EXTID_SCAN_LIMIT must be at least 1, got %d", d.ScanLimit))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("EXTID_DATABASE_URL is required for the postgres store"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("EXTID_SQLITE_PATH is required for the sqlite store"))
		}
	case StoreDynamoDB:
		if c.Store.DynamoTable == "" {
			errs = append(errs, errors.New("EXTID_DYNAMO_TABLE is required for the dynamodb store"))
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("EXTID_REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EXTID_STORE %q", c.Store.Backend))
	}

	switch strings.ToLower(c.Server.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("EXTID_LOG_FORMAT must be json or text, got %q", c.Server.LogFormat))
	}
	return errors.Join(errs...)
}
