package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadLetterPayload(t *testing.T) {
	lastErr := "circuit breaker is open"
	entry := &OutboxEntry{
		ID:          7,
		AggregateID: "a-1",
		EventType:   "AssessmentRecorded",
		Payload:     json.RawMessage(`{"id":"e-1"}`),
		KafkaTopic:  "prescription.assessments",
		KafkaKey:    "a-1",
		CreatedAt:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		RetryCount:  5,
		LastError:   &lastErr,
	}

	data, err := DeadLetterPayload(entry)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "prescription.assessments", decoded["original_topic"])
	assert.Equal(t, "AssessmentRecorded", decoded["event_type"])
	assert.Equal(t, float64(5), decoded["retry_count"])
	assert.Equal(t, lastErr, decoded["last_error"])
	assert.Equal(t, map[string]interface{}{"id": "e-1"}, decoded["payload"])
}

func TestDefaultOutboxConfig(t *testing.T) {
	cfg := DefaultOutboxConfig()

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Greater(t, cfg.DeadLetterInterval, cfg.PollInterval)
}
