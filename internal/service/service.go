// Package service runs prescription checks against the active reference data
// and records the outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

// ErrAuditDisabled is returned by Assessment when no repository is configured
var ErrAuditDisabled = errors.New("assessment audit is not enabled")

// Snapshots yields the active reference snapshot
type Snapshots interface {
	Current() *reference.Snapshot
}

// Request is one prescription to check
type Request struct {
	Prescriber  string                    `json:"prescriber"`
	Medications []prescription.Medication `json:"medications"`

	Channel       assessment.Channel `json:"-"`
	CorrelationID string             `json:"-"`
}

// Result is the outcome of a check
type Result struct {
	ID               string                      `json:"id"`
	Valid            bool                        `json:"valid"`
	ActiveCount      int                         `json:"active_count"`
	Issues           []prescription.Issue        `json:"issues"`
	Risk             prescription.RiskAssessment `json:"risk"`
	Summary          prescription.Summary        `json:"summary"`
	ReferenceVersion string                      `json:"reference_version,omitempty"`
	CheckedAt        time.Time                   `json:"checked_at"`
}

// Service validates and scores prescriptions
type Service struct {
	snapshots Snapshots
	repo      assessment.Repository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New creates a service. repo and m may be nil.
func New(snapshots Snapshots, repo assessment.Repository, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		snapshots: snapshots,
		repo:      repo,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("prescription-service"),
	}
}

// AuditEnabled reports whether results are persisted
func (s *Service) AuditEnabled() bool { return s.repo != nil }

// Check validates the prescription, scores it and, when audit is enabled,
// stores the record with its events. A failed save fails the check.
func (s *Service) Check(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	channel := req.Channel
	if channel == "" {
		channel = assessment.ChannelAPI
	}

	ctx, span := s.tracer.Start(ctx, "check_prescription",
		trace.WithAttributes(
			attribute.String("channel", string(channel)),
			attribute.Int("medications", len(req.Medications)),
		))
	defer span.End()

	snap := s.snapshots.Current()
	if snap == nil {
		err := errors.New("reference data not loaded")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	report, risk := snap.Validator.Evaluate(req.Prescriber, req.Medications)
	elapsed := time.Since(start)

	record := assessment.NewRecord(channel, req.Prescriber, req.Medications, report, risk)
	record.ReferenceVersion = snap.Version
	record.CorrelationID = req.CorrelationID

	span.SetAttributes(
		attribute.String("assessment_id", record.ID),
		attribute.Bool("valid", record.Valid),
		attribute.Int("risk_score", risk.Score),
		attribute.String("risk_level", string(risk.Level)),
	)

	s.metrics.ObserveValidation(string(channel), record.Valid, risk.Score, string(risk.Level), elapsed)
	for _, issue := range record.Issues {
		s.metrics.ObserveIssue(string(issue.Code()), issue.Severity().String())
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, record); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
			return nil, fmt.Errorf("save assessment: %w", err)
		}
	}

	s.logger.Info("prescription checked",
		zap.String("id", record.ID),
		zap.String("channel", string(channel)),
		zap.Bool("valid", record.Valid),
		zap.Int("risk_score", risk.Score),
		zap.String("risk_level", string(risk.Level)),
		zap.Int("issues", len(record.Issues)),
		zap.String("correlation_id", req.CorrelationID),
	)

	return &Result{
		ID:               record.ID,
		Valid:            record.Valid,
		ActiveCount:      record.ActiveCount,
		Issues:           record.Issues,
		Risk:             risk,
		Summary:          record.Summary,
		ReferenceVersion: snap.Version,
		CheckedAt:        record.CreatedAt,
	}, nil
}

// Assessment returns a stored record
func (s *Service) Assessment(ctx context.Context, id string) (*assessment.Record, error) {
	if s.repo == nil {
		return nil, ErrAuditDisabled
	}
	return s.repo.Get(ctx, id)
}

// Reference returns the active validator's formulary and schedules
func (s *Service) Reference() (*prescription.Formulary, *prescription.ScheduleCatalog, *reference.Snapshot) {
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, nil, nil
	}
	return snap.Validator.Formulary(), snap.Validator.Schedules(), snap
}
