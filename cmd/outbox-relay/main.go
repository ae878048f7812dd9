// Package main provides the outbox relay entry point. It publishes
// assessment events written by the API to Kafka/Redpanda.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/bootstrap"
	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/pkg/circuitbreaker"
)

const serviceName = "outbox-relay"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}
	logger, err := bootstrap.NewLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := bootstrap.Tracing(ctx, cfg, serviceName)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producerCfg.ClientID = serviceName

	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	logger.Info("connected to Redpanda", zap.Strings("brokers", cfg.KafkaBrokers))

	m := metrics.New(nil)
	breakers := circuitbreaker.NewManager(circuitbreaker.DefaultConfig(""), logger, redpanda.BreakerGauge(m, logger))
	publisher := redpanda.NewPublisher(producer, breakers, m, logger)

	outbox := postgres.NewOutbox(pool, publisher, postgres.DefaultOutboxConfig(), logger,
		postgres.WithPendingObserver(m.SetOutboxPending))

	outbox.Start()
	logger.Info("outbox relay started")

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := outbox.GetStats(r.Context())
		if err != nil {
			http.Error(w, `{"error":"outbox stats unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"outbox":   stats,
			"breakers": publisher.Health(),
		})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := producer.Ping(r.Context()); err != nil {
			http.Error(w, "broker not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("status server shutdown error", zap.Error(err))
	}
	outbox.Stop()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", zap.Error(err))
	}
	logger.Info("outbox relay stopped")
}
