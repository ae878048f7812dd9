package assessment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

// AggregateType names records in the outbox
const AggregateType = "PrescriptionAssessment"

// EventType represents the type of domain event
type EventType string

const (
	EventAssessmentRecorded EventType = "AssessmentRecorded"
	EventHighRiskDetected   EventType = "HighRiskDetected"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     EventType       `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewEvent creates a new event
func NewEvent(aggregateID string, eventType EventType, data interface{}) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: AggregateType,
		EventType:     eventType,
		EventData:     eventData,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// WithCorrelation sets the correlation ID
func (e *Event) WithCorrelation(id string) *Event {
	e.CorrelationID = id
	return e
}

// RecordedData is the payload of AssessmentRecorded
type RecordedData struct {
	AssessmentID string                 `json:"assessment_id"`
	Channel      Channel                `json:"channel"`
	Prescriber   string                 `json:"prescriber"`
	Valid        bool                   `json:"valid"`
	Summary      prescription.Summary   `json:"summary"`
	Score        int                    `json:"score"`
	Level        prescription.RiskLevel `json:"level"`
	RecordedAt   time.Time              `json:"recorded_at"`
}

// RiskAlertData is the payload of HighRiskDetected
type RiskAlertData struct {
	AssessmentID string              `json:"assessment_id"`
	Prescriber   string              `json:"prescriber"`
	Score        int                 `json:"score"`
	Factors      []string            `json:"factors"`
	Blocking     []prescription.Code `json:"blocking_codes"`
	DetectedAt   time.Time           `json:"detected_at"`
}
