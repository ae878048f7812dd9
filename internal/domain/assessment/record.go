// Package assessment holds the audit record of one prescription validation
// and the events it publishes.
package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

// Channel identifies how a prescription reached the validator
type Channel string

const (
	ChannelAPI   Channel = "api"
	ChannelFHIR  Channel = "fhir"
	ChannelBatch Channel = "batch"
	ChannelCLI   Channel = "cli"
)

// ErrNotFound is returned when no record has the requested ID
var ErrNotFound = errors.New("assessment not found")

// Record is the stored outcome of one validation run
type Record struct {
	ID               string                      `json:"id"`
	Channel          Channel                     `json:"channel"`
	Prescriber       string                      `json:"prescriber"`
	Medications      []prescription.Medication   `json:"medications"`
	ActiveCount      int                         `json:"active_count"`
	Valid            bool                        `json:"valid"`
	Summary          prescription.Summary        `json:"summary"`
	Issues           []prescription.Issue        `json:"issues"`
	Risk             prescription.RiskAssessment `json:"risk"`
	ReferenceVersion string                      `json:"reference_version,omitempty"`
	CorrelationID    string                      `json:"correlation_id,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// NewRecord captures a report and its risk assessment under a fresh ID
func NewRecord(channel Channel, prescriber string, meds []prescription.Medication, report *prescription.Report, risk prescription.RiskAssessment) *Record {
	issues := report.Issues()
	if issues == nil {
		issues = []prescription.Issue{}
	}
	return &Record{
		ID:          uuid.New().String(),
		Channel:     channel,
		Prescriber:  prescriber,
		Medications: append([]prescription.Medication(nil), meds...),
		ActiveCount: report.ActiveCount(),
		Valid:       report.Valid(),
		Summary:     report.Summary(),
		Issues:      issues,
		Risk:        risk,
		CreatedAt:   time.Now().UTC(),
	}
}

// HighRisk reports whether the record falls in the high band
func (r *Record) HighRisk() bool {
	return r.Risk.Level == prescription.RiskHigh
}

// Events returns the events to publish for the record: always a recorded
// event, plus a risk alert for high-risk outcomes
func (r *Record) Events() ([]*Event, error) {
	recorded, err := NewEvent(r.ID, EventAssessmentRecorded, RecordedData{
		AssessmentID: r.ID,
		Channel:      r.Channel,
		Prescriber:   r.Prescriber,
		Valid:        r.Valid,
		Summary:      r.Summary,
		Score:        r.Risk.Score,
		Level:        r.Risk.Level,
		RecordedAt:   r.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	events := []*Event{recorded.WithCorrelation(r.CorrelationID)}

	if r.HighRisk() {
		alert, err := NewEvent(r.ID, EventHighRiskDetected, RiskAlertData{
			AssessmentID: r.ID,
			Prescriber:   r.Prescriber,
			Score:        r.Risk.Score,
			Factors:      r.Risk.Factors,
			Blocking:     blockingCodes(r.Issues),
			DetectedAt:   r.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, alert.WithCorrelation(r.CorrelationID))
	}
	return events, nil
}

func blockingCodes(issues []prescription.Issue) []prescription.Code {
	out := []prescription.Code{}
	for _, issue := range issues {
		if issue.IsBlocking() {
			out = append(out, issue.Code())
		}
	}
	return out
}

// Repository persists records
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}
