package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/bootstrap"
	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

func noop() {}

// openReferenceSource prefers an explicit file and otherwise follows
// REFERENCE_SOURCE. The returned func releases any database pool.
func openReferenceSource(ctx context.Context, file string) (reference.Source, func(), error) {
	if file != "" {
		return reference.NewFileSource(file), noop, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	var pool *pgxpool.Pool
	if cfg.ReferenceSource == config.ReferencePostgres {
		if pool, err = postgres.Connect(ctx, cfg.DatabaseURL, zap.NewNop()); err != nil {
			return nil, nil, err
		}
	}
	source, err := bootstrap.ReferenceSource(ctx, cfg, pool, zap.NewNop())
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	if pool == nil {
		return source, noop, nil
	}
	return source, pool.Close, nil
}

// connect opens the configured database
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

// brokers returns KAFKA_BROKERS from the environment configuration
func brokers() ([]string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg.KafkaBrokers, nil
}
