package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Cache    CacheConfig
	Warming  WarmingConfig
	Database DatabaseConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"staffhub-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds the remote store credentials. URL and token are
// required for the redis store; TTL tiers and key prefixes are compiled in.
type CacheConfig struct {
	Type         string `envconfig:"CACHE_TYPE" default:"redis"` // redis or memory
	StoreURL     string `envconfig:"CACHE_STORE_URL"`
	StoreToken   string `envconfig:"CACHE_STORE_TOKEN"`
	PoolSize     int    `envconfig:"CACHE_POOL_SIZE" default:"20"`
	MinIdleConns int    `envconfig:"CACHE_MIN_IDLE_CONNS" default:"5"`
}

// WarmingConfig controls the scheduled cache warmer.
type WarmingConfig struct {
	Enabled     bool          `envconfig:"WARM_ENABLED" default:"true"`
	Interval    time.Duration `envconfig:"WARM_INTERVAL" default:"30m"`
	TenantDelay time.Duration `envconfig:"WARM_TENANT_DELAY" default:"1s"`
	RunTimeout  time.Duration `envconfig:"WARM_RUN_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds the source-of-truth connection settings.
type DatabaseConfig struct {
	Type     string `envconfig:"HR_DB_TYPE" default:"sqlite"` // sqlite, mysql, or postgres
	Path     string `envconfig:"HR_DB_PATH" default:"./data/staffhub.db"`
	Host     string `envconfig:"HR_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"HR_DB_PORT" default:"3306"`
	Name     string `envconfig:"HR_DB_NAME" default:"staffhub"`
	User     string `envconfig:"HR_DB_USER" default:"root"`
	Password string `envconfig:"HR_DB_PASS" default:""`
	SSLMode  string `envconfig:"HR_DB_SSLMODE" default:"disable"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Source returns the path or DSN the repository opener expects for Type.
func (d *DatabaseConfig) Source() string {
	switch d.Type {
	case "mysql":
		return d.MySQLDSN()
	case "postgres", "postgresql":
		return d.PostgresDSN()
	default:
		return d.Path
	}
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks settings envconfig cannot express: the store credentials
// are required only when the redis store is selected.
func (c *Config) Validate() error {
	switch c.Cache.Type {
	case "redis":
		if c.Cache.StoreURL == "" {
			return fmt.Errorf("CACHE_STORE_URL is required when CACHE_TYPE=redis")
		}
		if c.Cache.StoreToken == "" {
			return fmt.Errorf("CACHE_STORE_TOKEN is required when CACHE_TYPE=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type)
	}

	if c.Warming.Enabled && c.Warming.Interval <= 0 {
		return fmt.Errorf("WARM_INTERVAL must be positive")
	}
	if c.Warming.TenantDelay < 0 {
		return fmt.Errorf("WARM_TENANT_DELAY must not be negative")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
