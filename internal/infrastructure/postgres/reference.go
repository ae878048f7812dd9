package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

// ReferenceSource reads the formulary and schedule tables
type ReferenceSource struct {
	pool *pgxpool.Pool
}

var _ reference.Source = (*ReferenceSource)(nil)

// NewReferenceSource creates a source over the reference tables
func NewReferenceSource(pool *pgxpool.Pool) *ReferenceSource {
	return &ReferenceSource{pool: pool}
}

func (s *ReferenceSource) Name() string { return "postgres" }

// Load reads all three tables in one read-only snapshot
func (s *ReferenceSource) Load(ctx context.Context) (*reference.Document, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	doc := &reference.Document{}

	err = tx.QueryRow(ctx, `SELECT version FROM reference_versions ORDER BY published_at DESC LIMIT 1`).Scan(&doc.Version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("query reference version: %w", err)
	}

	if doc.Formulary, err = loadDrugs(ctx, tx); err != nil {
		return nil, err
	}
	if doc.Schedules, err = loadSchedules(ctx, tx); err != nil {
		return nil, err
	}
	return doc, nil
}

func loadDrugs(ctx context.Context, tx pgx.Tx) ([]prescription.Drug, error) {
	rows, err := tx.Query(ctx, `
		SELECT name, max_daily_dose::float8, unit, COALESCE(category, ''),
		       contraindications, side_effects
		FROM formulary_drugs
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query formulary: %w", err)
	}
	drugs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (prescription.Drug, error) {
		var d prescription.Drug
		err := row.Scan(&d.Name, &d.MaxDailyDose, &d.Unit, &d.Category, &d.Contraindications, &d.SideEffects)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan formulary: %w", err)
	}

	index := make(map[string]int, len(drugs))
	for i, d := range drugs {
		index[d.Name] = i
	}

	rows, err = tx.Query(ctx, `
		SELECT drug_name, interacts_with
		FROM formulary_interactions
		ORDER BY drug_name, position, interacts_with
	`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var drug, other string
		if err := rows.Scan(&drug, &other); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if i, ok := index[drug]; ok {
			drugs[i].Interactions = append(drugs[i].Interactions, other)
		}
	}
	return drugs, rows.Err()
}

func loadSchedules(ctx context.Context, tx pgx.Tx) ([]prescription.Schedule, error) {
	rows, err := tx.Query(ctx, `
		SELECT code, COALESCE(label, ''), time_slots, COALESCE(shorthand, '')
		FROM dosing_schedules
		ORDER BY position, code
	`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	schedules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (prescription.Schedule, error) {
		var s prescription.Schedule
		err := row.Scan(&s.Code, &s.Label, &s.TimeSlots, &s.Shorthand)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan schedules: %w", err)
	}
	return schedules, nil
}

// Import replaces the reference tables with a validated document in a single
// transaction
func (s *ReferenceSource) Import(ctx context.Context, doc *reference.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE formulary_interactions, formulary_drugs, dosing_schedules`); err != nil {
		return fmt.Errorf("clear reference tables: %w", err)
	}

	batch := &pgx.Batch{}
	for _, d := range doc.Formulary {
		batch.Queue(`
			INSERT INTO formulary_drugs (name, max_daily_dose, unit, category, contraindications, side_effects)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		`, d.Name, d.MaxDailyDose, d.Unit, d.Category, nonNil(d.Contraindications), nonNil(d.SideEffects))
		for pos, other := range d.Interactions {
			batch.Queue(`
				INSERT INTO formulary_interactions (drug_name, interacts_with, position)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, d.Name, other, pos)
		}
	}
	for pos, sch := range doc.Schedules {
		batch.Queue(`
			INSERT INTO dosing_schedules (code, label, time_slots, shorthand, position)
			VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5)
		`, sch.Code, sch.Label, nonNil(sch.TimeSlots), sch.Shorthand, pos)
	}
	if doc.Version != "" {
		batch.Queue(`
			INSERT INTO reference_versions (version) VALUES ($1)
			ON CONFLICT (version) DO UPDATE SET published_at = NOW()
		`, doc.Version)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write reference tables: %w", err)
	}
	return tx.Commit(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
