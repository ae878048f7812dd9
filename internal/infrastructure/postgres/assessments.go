package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
)

// AssessmentStore persists assessment records and writes their events to
// the outbox in the same transaction
type AssessmentStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ assessment.Repository = (*AssessmentStore)(nil)

// NewAssessmentStore creates a new store
func NewAssessmentStore(pool *pgxpool.Pool, logger *zap.Logger) *AssessmentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentStore{pool: pool, logger: logger}
}

// Save inserts the record and its outbox entries
func (s *AssessmentStore) Save(ctx context.Context, r *assessment.Record) error {
	entries, err := OutboxEntries(r)
	if err != nil {
		return err
	}
	meds, err := json.Marshal(r.Medications)
	if err != nil {
		return fmt.Errorf("encode medications: %w", err)
	}
	issues, err := json.Marshal(r.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	factors, err := json.Marshal(r.Risk.Factors)
	if err != nil {
		return fmt.Errorf("encode risk factors: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO prescription_assessments
		(id, channel, prescriber, medications, medication_count, active_count, valid,
		 error_count, warning_count, info_count, risk_score, risk_level, risk_factors,
		 issues, reference_version, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		r.ID, string(r.Channel), r.Prescriber, meds, len(r.Medications), r.ActiveCount, r.Valid,
		r.Summary.Errors, r.Summary.Warnings, r.Summary.Infos,
		r.Risk.Score, string(r.Risk.Level), factors,
		issues, nullable(r.ReferenceVersion), nullable(r.CorrelationID), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	for _, entry := range entries {
		if err := WriteEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("assessment stored",
		zap.String("id", r.ID),
		zap.Int("outbox_entries", len(entries)))
	return nil
}

// Get loads a record by ID
func (s *AssessmentStore) Get(ctx context.Context, id string) (*assessment.Record, error) {
	var (
		r                      assessment.Record
		channel, level         string
		meds, issues, factors  []byte
		refVersion, correlated *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, channel, prescriber, medications, active_count, valid,
		       error_count, warning_count, info_count, risk_score, risk_level, risk_factors,
		       issues, reference_version, correlation_id, created_at
		FROM prescription_assessments
		WHERE id = $1::uuid
	`, id).Scan(
		&r.ID, &channel, &r.Prescriber, &meds, &r.ActiveCount, &r.Valid,
		&r.Summary.Errors, &r.Summary.Warnings, &r.Summary.Infos, &r.Risk.Score, &level, &factors,
		&issues, &refVersion, &correlated, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assessment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}

	r.Channel = assessment.Channel(channel)
	r.Risk.Level = prescription.RiskLevel(level)
	if err := json.Unmarshal(meds, &r.Medications); err != nil {
		return nil, fmt.Errorf("decode medications: %w", err)
	}
	if err := json.Unmarshal(issues, &r.Issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	if err := json.Unmarshal(factors, &r.Risk.Factors); err != nil {
		return nil, fmt.Errorf("decode risk factors: %w", err)
	}
	if refVersion != nil {
		r.ReferenceVersion = *refVersion
	}
	if correlated != nil {
		r.CorrelationID = *correlated
	}
	return &r, nil
}

// OutboxEntries converts a record's events into outbox rows keyed by the
// assessment ID
func OutboxEntries(r *assessment.Record) ([]*OutboxEntry, error) {
	events, err := r.Events()
	if err != nil {
		return nil, fmt.Errorf("build events: %w", err)
	}
	entries := make([]*OutboxEntry, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", e.EventType, err)
		}
		entries = append(entries, &OutboxEntry{
			AggregateID:   e.AggregateID,
			AggregateType: e.AggregateType,
			EventType:     string(e.EventType),
			Payload:       payload,
			KafkaTopic:    redpanda.TopicFor(e.EventType),
			KafkaKey:      e.AggregateID,
		})
	}
	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
