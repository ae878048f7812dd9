// Package main provides the prescription check API entry point.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/api/handlers"
	"github.com/khoadang148/carehome-system-sub011/internal/api/middleware"
	"github.com/khoadang148/carehome-system-sub011/internal/bootstrap"
	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
)

const serviceName = "rxcheck-api"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := bootstrap.Tracing(ctx, cfg, serviceName)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	pool, err := bootstrap.Database(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
		if _, err := bootstrap.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
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

	validationHandler := handlers.NewValidationHandler(svc, logger)
	referenceHandler := handlers.NewReferenceHandler(svc)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(serviceName))

	// Health, readiness and metrics (no auth)
	r.Get("/health", healthHandler(provider))
	r.Get("/ready", readyHandler(provider, pool))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if keys := middleware.ParseAPIKeys(cfg.APIKeys); len(keys) > 0 {
			r.Use(middleware.APIKeyAuth(keys))
		} else {
			logger.Warn("API key auth disabled; set API_KEYS to enable")
		}
		r.Mount("/prescriptions", validationHandler.Routes())
		r.Mount("/formulary", referenceHandler.FormularyRoutes())
		r.Get("/schedules", referenceHandler.ListSchedules)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting prescription check API",
		zap.String("port", cfg.Port),
		zap.String("reference_source", source.Name()),
		zap.Bool("audit", cfg.AuditEnabled))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func healthHandler(provider *reference.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := provider.Current()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":            "healthy",
			"service":           serviceName,
			"reference_source":  snap.Source,
			"reference_version": snap.Version,
			"reference_loaded":  snap.LoadedAt,
		})
	}
}

func readyHandler(provider *reference.Provider, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider.Current() == nil {
			http.Error(w, "reference data not loaded", http.StatusServiceUnavailable)
			return
		}
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				http.Error(w, "database not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}
