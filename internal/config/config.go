package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend modes select where the feed's records come from.
const (
	ModeHTTP     = "http"
	ModePostgres = "postgres"
	ModeSim      = "sim"
)

// Config holds all configuration for the feed service
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BackendConfig selects and configures the record/stats source
type BackendConfig struct {
	Mode     string `mapstructure:"mode"` // http, postgres, sim
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"page_size"`
}

// IngestConfig bounds the randomized polling interval
type IngestConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	Simulate    bool          `mapstructure:"simulate"`
	SimBaseline int           `mapstructure:"sim_baseline"`
	AutoStart   bool          `mapstructure:"auto_start"`
}

// RedisConfig configures the last-good stats snapshot cache
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// NATSConfig configures the view-change publisher
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
	Subject string `mapstructure:"subject"`
}

// LoggingConfig holds log level and format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig holds PostgreSQL configuration for postgres mode
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds the pgx connection string.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("backend.mode", ModeSim)
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.page_size", 100)

	v.SetDefault("ingest.min_interval", "2s")
	v.SetDefault("ingest.max_interval", "5s")
	v.SetDefault("ingest.simulate", true)
	v.SetDefault("ingest.sim_baseline", 150)
	v.SetDefault("ingest.auto_start", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject", "cspm.feed.updated")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "cspm")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "cspm_feed")
	v.SetDefault("database.postgres.sslmode", "disable")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	// e.g. CSPMFEED_SERVER_PORT overrides server.port
	v.SetEnvPrefix("CSPMFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
