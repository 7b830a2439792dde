// Package config loads debugconsole configuration from defaults, an optional
// YAML file and DEBUGCONSOLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/debugconsole/internal/database"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig selects the event store. Type is "postgres" or "memory".
type DatabaseConfig struct {
	Type          string         `mapstructure:"type"`
	MigrationsDir string         `mapstructure:"migrations_dir"`
	Postgres      PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString returns the postgres:// URL for pgx and golang-migrate.
func (p PostgresConfig) ConnString() string {
	return database.ConnString(p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig holds the session store settings.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	Enabled    bool          `mapstructure:"enabled"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// NATSConfig holds the event forwarding settings.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	CookieDomain string        `mapstructure:"cookie_domain"`
}

// RecorderConfig controls event normalization. Timezone is an IANA name
// attached to timestamps that carry no offset.
type RecorderConfig struct {
	Timezone      string `mapstructure:"timezone"`
	DefaultSource string `mapstructure:"default_source"`
}

// Location resolves Timezone. Load has already validated it.
func (r RecorderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "debugconsole")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "debugconsole")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.session_ttl", "12h")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject", "debug.events.recorded")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.cookie_secure", true)
	v.SetDefault("auth.cookie_domain", "")

	v.SetDefault("recorder.timezone", "UTC")
	v.SetDefault("recorder.default_source", "backend")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/debugconsole")
	}

	// DEBUGCONSOLE_SERVER_PORT, DEBUGCONSOLE_AUTH_JWT_SECRET, ...
	v.SetEnvPrefix("DEBUGCONSOLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid database.type %q: must be postgres or memory", c.Database.Type)
	}
	if _, err := time.LoadLocation(c.Recorder.Timezone); err != nil {
		return fmt.Errorf("invalid recorder.timezone %q: %w", c.Recorder.Timezone, err)
	}
	if c.Redis.Enabled && c.Redis.SessionTTL <= 0 {
		return fmt.Errorf("redis.session_ttl must be positive")
	}
	return nil
}
