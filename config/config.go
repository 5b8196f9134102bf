package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Square    SquareConfig    `mapstructure:"square"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Mail      MailConfig      `mapstructure:"mail"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrationURL returns the DSN in the scheme expected by the migrate pgx/v5 driver.
func (d DatabaseConfig) MigrationURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig validates admin bearer tokens issued by the external auth service.
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	Expiry    time.Duration `mapstructure:"expiry"`
	Issuer    string        `mapstructure:"issuer"`
	AdminRole string        `mapstructure:"admin_role"`
}

type VaultConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256-GCM
}

type SquareConfig struct {
	APIVersion             string        `mapstructure:"api_version"`
	SandboxBaseURL         string        `mapstructure:"sandbox_base_url"`
	ProductionBaseURL      string        `mapstructure:"production_base_url"`
	Timeout                time.Duration `mapstructure:"timeout"`
	WebhookNotificationURL string        `mapstructure:"webhook_notification_url"`
	EventTTL               time.Duration `mapstructure:"event_ttl"`
}

type QueueConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	MaxRetry    int    `mapstructure:"max_retry"`
	Name        string `mapstructure:"name"`
}

type MailConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIURL    string        `mapstructure:"api_url"`
	APIKey    string        `mapstructure:"api_key"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	PaymentsPerMinute int `mapstructure:"payments_per_minute"`
	AdminPerMinute    int `mapstructure:"admin_per_minute"`
}

type MetricsConfig struct {
	Namespace  string `mapstructure:"namespace"`
	WorkerPort int    `mapstructure:"worker_port"` // /metrics listener of the worker process
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: GDS_.
// Nested keys use underscore: GDS_DATABASE_HOST, GDS_VAULT_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "gds_payments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "gds-auth")
	v.SetDefault("jwt.admin_role", "admin")
	v.SetDefault("vault.key", "")
	v.SetDefault("square.api_version", "2024-06-04")
	v.SetDefault("square.sandbox_base_url", "https://connect.squareupsandbox.com")
	v.SetDefault("square.production_base_url", "https://connect.squareup.com")
	v.SetDefault("square.timeout", "15s")
	v.SetDefault("square.webhook_notification_url", "")
	v.SetDefault("square.event_ttl", "24h")
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.max_retry", 8)
	v.SetDefault("queue.name", "payments")
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.api_url", "https://api.mailchannels.net/tx/v1/send")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.from_email", "noreply@example.com")
	v.SetDefault("mail.from_name", "Kennel Payments")
	v.SetDefault("mail.timeout", "10s")
	v.SetDefault("ratelimit.payments_per_minute", 20)
	v.SetDefault("ratelimit.admin_per_minute", 120)
	v.SetDefault("metrics.namespace", "gds")
	v.SetDefault("metrics.worker_port", 9091)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// GDS_DATABASE_HOST -> database.host
	v.SetEnvPrefix("GDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the file is optional, env vars can suffice
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error

	key, err := hex.DecodeString(c.Vault.Key)
	switch {
	case c.Vault.Key == "":
		errs = append(errs, errors.New("vault.key is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("vault.key must be hex encoded: %w", err))
	case len(key) != 32:
		errs = append(errs, fmt.Errorf("vault.key must decode to 32 bytes, got %d", len(key)))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if _, err := url.ParseRequestURI(c.Square.WebhookNotificationURL); err != nil {
		errs = append(errs, errors.New("square.webhook_notification_url must be an absolute URL"))
	}
	if c.Square.Timeout <= 0 {
		errs = append(errs, errors.New("square.timeout must be positive"))
	}

	return errors.Join(errs...)
}
