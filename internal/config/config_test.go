package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key so host variables do not leak into a test.
// Viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ReferenceEmbedded, cfg.ReferenceSource)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.APIKeys)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 0.1, cfg.TraceSampleRate)
	assert.Equal(t, time.Duration(0), cfg.ReferenceRefreshInterval)
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("API_KEYS", "key-a,key-b")
	t.Setenv("AUDIT_ENABLED", "true")
	t.Setenv("DATABASE_URL", "postgres://rx:rx@localhost:5432/rx")
	t.Setenv("REFERENCE_REFRESH_INTERVAL", "5m")
	t.Setenv("WORKERS", "3")

	cfg, err := load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.APIKeys)
	assert.True(t, cfg.AuditEnabled)
	assert.True(t, cfg.NeedsDatabase())
	assert.Equal(t, 5*time.Minute, cfg.ReferenceRefreshInterval)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoad_EnvFileAndOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nREFERENCE_SOURCE=file\nREFERENCE_FILE=/etc/rx/reference.json\n"), 0o600))
	t.Setenv("PORT", "7500")

	cfg, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, "7500", cfg.Port)
	assert.Equal(t, ReferenceFile, cfg.ReferenceSource)
	assert.Equal(t, "/etc/rx/reference.json", cfg.ReferenceFile)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Env: "development", ReferenceSource: ReferenceEmbedded, Workers: 1, TraceSampleRate: 0.5}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"ok", func(c *Config) {}, ""},
		{"file without path", func(c *Config) { c.ReferenceSource = ReferenceFile }, "REFERENCE_FILE"},
		{"postgres without url", func(c *Config) { c.ReferenceSource = ReferencePostgres }, "DATABASE_URL"},
		{"s3 without bucket", func(c *Config) { c.ReferenceSource = ReferenceS3 }, "REFERENCE_S3_BUCKET"},
		{"unknown source", func(c *Config) { c.ReferenceSource = "ftp" }, "REFERENCE_SOURCE"},
		{"audit without url", func(c *Config) { c.AuditEnabled = true }, "AUDIT_ENABLED"},
		{"sample rate", func(c *Config) { c.TraceSampleRate = 2 }, "TRACE_SAMPLE_RATE"},
		{"workers", func(c *Config) { c.Workers = 0 }, "WORKERS"},
		{"production needs keys", func(c *Config) { c.Env = "production" }, "API_KEYS"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			err := c.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}
