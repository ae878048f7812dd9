// Package bootstrap builds the shared process dependencies used by the
// binaries: logger, tracing and the configured reference data source.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/s3"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/tracing"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

// NewLogger returns a production JSON logger at the given level. debug
// switches to the development console encoder.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// Tracing installs the global tracer provider for service
func Tracing(ctx context.Context, cfg *config.Config, service string) (*tracing.Provider, error) {
	tcfg := tracing.DefaultConfig(service)
	tcfg.Environment = cfg.Env
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tcfg.SampleRate = cfg.TraceSampleRate
	return tracing.Init(ctx, tcfg)
}

// ReferenceSource returns the source selected by REFERENCE_SOURCE. pool is
// required for the postgres source only.
func ReferenceSource(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (reference.Source, error) {
	switch cfg.ReferenceSource {
	case config.ReferenceEmbedded:
		return reference.NewEmbeddedSource(), nil
	case config.ReferenceFile:
		return reference.NewFileSource(cfg.ReferenceFile), nil
	case config.ReferencePostgres:
		if pool == nil {
			return nil, errors.New("postgres reference source needs a database pool")
		}
		return postgres.NewReferenceSource(pool), nil
	case config.ReferenceS3:
		return s3.New(ctx, s3.Config{
			Region:    cfg.ReferenceS3Region,
			Bucket:    cfg.ReferenceS3Bucket,
			Key:       cfg.ReferenceS3Key,
			Endpoint:  cfg.ReferenceS3Endpoint,
			PathStyle: cfg.ReferenceS3Endpoint != "",
		}, logger)
	default:
		return nil, fmt.Errorf("unknown reference source %q", cfg.ReferenceSource)
	}
}

// Database connects when any configured feature needs Postgres and returns
// nil otherwise
func Database(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if !cfg.NeedsDatabase() {
		return nil, nil
	}
	return postgres.Connect(ctx, cfg.DatabaseURL, logger)
}

// Migrate applies the embedded migrations when a pool is configured
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int, error) {
	if pool == nil {
		return 0, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n, err := postgres.NewMigrator(pool).Up(ctx)
	if err != nil {
		return n, fmt.Errorf("migrations: %w", err)
	}
	logger.Info("migrations applied", zap.Int("count", n))
	return n, nil
}
