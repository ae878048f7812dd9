// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Reference data sources
const (
	ReferenceEmbedded = "embedded"
	ReferenceFile     = "file"
	ReferencePostgres = "postgres"
	ReferenceS3       = "s3"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	AuditEnabled bool   `mapstructure:"AUDIT_ENABLED"`

	KafkaBrokers  []string `mapstructure:"KAFKA_BROKERS"`
	ConsumerGroup string   `mapstructure:"CONSUMER_GROUP"`

	ReferenceSource          string        `mapstructure:"REFERENCE_SOURCE"`
	ReferenceFile            string        `mapstructure:"REFERENCE_FILE"`
	ReferenceS3Bucket        string        `mapstructure:"REFERENCE_S3_BUCKET"`
	ReferenceS3Key           string        `mapstructure:"REFERENCE_S3_KEY"`
	ReferenceS3Region        string        `mapstructure:"REFERENCE_S3_REGION"`
	ReferenceS3Endpoint      string        `mapstructure:"REFERENCE_S3_ENDPOINT"`
	ReferenceRefreshInterval time.Duration `mapstructure:"REFERENCE_REFRESH_INTERVAL"`

	APIKeys []string `mapstructure:"API_KEYS"`

	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TraceSampleRate float64 `mapstructure:"TRACE_SAMPLE_RATE"`

	Workers int `mapstructure:"WORKERS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "AUDIT_ENABLED",
	"KAFKA_BROKERS", "CONSUMER_GROUP",
	"REFERENCE_SOURCE", "REFERENCE_FILE",
	"REFERENCE_S3_BUCKET", "REFERENCE_S3_KEY", "REFERENCE_S3_REGION", "REFERENCE_S3_ENDPOINT",
	"REFERENCE_REFRESH_INTERVAL",
	"API_KEYS",
	"OTLP_ENDPOINT", "TRACE_SAMPLE_RATE",
	"WORKERS",
}

// Load reads configuration. Environment variables win over .env values.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("CONSUMER_GROUP", "rxcheck-revalidation")
	v.SetDefault("REFERENCE_SOURCE", ReferenceEmbedded)
	v.SetDefault("REFERENCE_S3_KEY", "reference/formulary.json")
	v.SetDefault("REFERENCE_S3_REGION", "us-east-1")
	v.SetDefault("REFERENCE_REFRESH_INTERVAL", "0s")
	v.SetDefault("API_KEYS", "")
	v.SetDefault("TRACE_SAMPLE_RATE", 0.1)
	v.SetDefault("WORKERS", 8)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	cfg.APIKeys = splitList(cfg.APIKeys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma-separated entries and drops blanks
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	switch c.ReferenceSource {
	case ReferenceEmbedded:
	case ReferenceFile:
		if c.ReferenceFile == "" {
			return fmt.Errorf("REFERENCE_FILE is required when REFERENCE_SOURCE=file")
		}
	case ReferencePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when REFERENCE_SOURCE=postgres")
		}
	case ReferenceS3:
		if c.ReferenceS3Bucket == "" {
			return fmt.Errorf("REFERENCE_S3_BUCKET is required when REFERENCE_SOURCE=s3")
		}
	default:
		return fmt.Errorf("REFERENCE_SOURCE must be one of embedded, file, postgres, s3; got %q", c.ReferenceSource)
	}
	if c.AuditEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when AUDIT_ENABLED=true")
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be between 0 and 1, got %v", c.TraceSampleRate)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.IsProduction() && len(c.APIKeys) == 0 {
		return fmt.Errorf("API_KEYS is required in production")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NeedsDatabase reports whether any configured feature uses Postgres
func (c *Config) NeedsDatabase() bool {
	return c.AuditEnabled || c.ReferenceSource == ReferencePostgres
}
