package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// RateLimitRule is one entry of the per-endpoint rate-limit table: pattern
// matches a normalized request path.
type RateLimitRule struct {
	Pattern string `yaml:"pattern"`
	Limit   int    `yaml:"limit"`
	WindowS int    `yaml:"window_s"`
	BlockS  int    `yaml:"block_s"`
}

// AMLThreshold is the configurable large-transaction boundary per currency.
type AMLThreshold struct {
	Currency  string  `yaml:"currency"`
	Threshold float64 `yaml:"threshold"`
}

// FileConfig is the layered config file read on top of env vars — rate
// limit rules, AML thresholds, and the audit-log redaction list don't fit
// naturally into flat env vars.
type FileConfig struct {
	RateLimitRules       []RateLimitRule `yaml:"rate_limit_rules"`
	AMLThresholds        []AMLThreshold  `yaml:"aml_thresholds"`
	SensitiveFieldNames  []string        `yaml:"sensitive_field_names"`
	ExemptPaths          []string        `yaml:"exempt_paths"`
}

// Config holds all application configuration parsed from environment
// variables, plus a secondary YAML file for settings too structured for
// env vars.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"platform"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"platform"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"platform"`

	// Redis (cache layer A)
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Secrets
	InternalJWTSecret    string `env:"INTERNAL_JWT_SECRET" envDefault:"change-me-in-production"`
	FieldEncryptionKey   string `env:"FIELD_ENCRYPTION_KEY"`

	// HTTP server
	APIPort             int    `env:"API_PORT" envDefault:"8080"`
	RequestTimeout      string `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxRequestBodyBytes int64  `env:"MAX_REQUEST_BODY_BYTES" envDefault:"10485760"`
	MaxConcurrentReqs   int    `env:"MAX_CONCURRENT_REQUESTS" envDefault:"512"`

	// Admission pipeline
	GlobalIPWhitelistEnabled bool `env:"GLOBAL_IP_WHITELIST_ENABLED" envDefault:"false"`

	// Kafka (outbox → broker)
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Reporting scheduler
	ReportWorkerCount int    `env:"REPORT_WORKER_COUNT" envDefault:"5"`
	ReportQueueSize   int    `env:"REPORT_QUEUE_SIZE" envDefault:"256"`
	ReportStoragePath string `env:"REPORT_STORAGE_PATH" envDefault:"./data/reports"`

	// CORS (routing chrome — out of scope, kept as passthrough config only)
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	ConfigFilePath        string `env:"CONFIG_FILE_PATH" envDefault:"config.yaml"`
	AllowInsecureDefaults bool   `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`

	File FileConfig `env:"-"`
}

// DefaultSensitiveFieldNames is the audit-log redaction list; a non-empty
// list in the file config replaces it.
var DefaultSensitiveFieldNames = []string{
	"password", "api_key", "secret", "token", "authorization", "credit_card", "ssn",
}

// DefaultExemptPaths lists the admission-pipeline exemption list: health,
// docs, static assets, and the OpenAPI document.
var DefaultExemptPaths = []string{"/health", "/docs", "/openapi.json", "/static/"}

// Load parses environment variables and the layered YAML config file into
// a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	file, err := loadFileConfig(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("load file config: %w", err)
	}
	cfg.File = file

	if len(cfg.File.SensitiveFieldNames) == 0 {
		cfg.File.SensitiveFieldNames = DefaultSensitiveFieldNames
	}
	if len(cfg.File.ExemptPaths) == 0 {
		cfg.File.ExemptPaths = DefaultExemptPaths
	}

	return cfg, nil
}

func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("unmarshal config file: %w", err)
	}
	return fc, nil
}

// Validate rejects insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.InternalJWTSecret == "change-me-in-production" {
		return fmt.Errorf("INTERNAL_JWT_SECRET is set to the insecure default")
	}
	if len(c.InternalJWTSecret) < 32 {
		return fmt.Errorf("INTERNAL_JWT_SECRET is too short (%d chars); minimum 32 required", len(c.InternalJWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// RequestTimeoutDuration parses RequestTimeout, defaulting to 30s on error.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
