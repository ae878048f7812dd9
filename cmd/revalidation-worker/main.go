// Package main provides the batch revalidation worker entry point. It
// consumes prescription check requests and publishes their results.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/bootstrap"
	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
	"github.com/khoadang148/carehome-system-sub011/internal/revalidation"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
	"github.com/khoadang148/carehome-system-sub011/pkg/circuitbreaker"
	"github.com/khoadang148/carehome-system-sub011/pkg/idempotency"
	"github.com/khoadang148/carehome-system-sub011/pkg/workerpool"
)

const serviceName = "revalidation-worker"

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
		logger.Fatal("DATABASE_URL is required for the idempotency inbox")
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

	// the inbox table must exist before the first batch arrives
	if _, err := bootstrap.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	m := metrics.New(nil)

	source, err := bootstrap.ReferenceSource(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("failed to create reference source", zap.Error(err))
	}
	provider, err := reference.NewProvider(ctx, source, logger,
		reference.WithLoadHook(func(s *reference.Snapshot) {
			m.SetReference(s.Validator.Formulary().Len(), s.Validator.Schedules().Len(), s.LoadedAt)
		}))
	if err != nil {
		logger.Fatal("failed to load reference data", zap.Error(err))
	}
	go provider.Watch(ctx, cfg.ReferenceRefreshInterval)

	var repo assessment.Repository
	if cfg.AuditEnabled {
		repo = postgres.NewAssessmentStore(pool, logger)
	}
	svc := service.New(provider, repo, m, logger)

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producerCfg.ClientID = serviceName
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	breakers := circuitbreaker.NewManager(circuitbreaker.DefaultConfig(""), logger, redpanda.BreakerGauge(m, logger))
	publisher := redpanda.NewPublisher(producer, breakers, m, logger)

	inbox := idempotency.NewInbox(idempotency.NewPostgresStore(pool), idempotency.DefaultConfig(), logger)
	go inbox.RunCleanup(ctx)

	poolCfg := workerpool.DefaultConfig()
	poolCfg.Workers = cfg.Workers
	processor, err := revalidation.NewProcessor(svc, inbox, publisher, poolCfg, m, logger)
	if err != nil {
		logger.Fatal("processor creation failed", zap.Error(err))
	}

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers
	consumerCfg.GroupID = cfg.ConsumerGroup
	consumerCfg.Topics = []string{redpanda.TopicValidationRequests}

	consumer, err := redpanda.NewConsumer(consumerCfg, processor.HandleBatch, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}

	consumer.Start()
	logger.Info("revalidation worker started",
		zap.String("group", consumerCfg.GroupID),
		zap.Int("workers", poolCfg.Workers),
		zap.String("reference_source", source.Name()))

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"` + serviceName + `"}`))
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
	if err := consumer.Stop(); err != nil {
		logger.Warn("consumer stop", zap.Error(err))
	}
	processor.Stop()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", zap.Error(err))
	}
	logger.Info("revalidation worker stopped")
}
