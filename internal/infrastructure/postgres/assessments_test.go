package postgres

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
)

func record(t *testing.T, prescriber string, meds []prescription.Medication) *assessment.Record {
	t.Helper()
	v := prescription.NewValidator(
		prescription.NewFormulary([]prescription.Drug{{Name: "Metformin", MaxDailyDose: 2000, Unit: "mg"}}),
		prescription.NewScheduleCatalog([]prescription.Schedule{{Code: "sang", TimeSlots: []string{"07:00"}}}),
	)
	report, risk := v.Evaluate(prescriber, meds)
	return assessment.NewRecord(assessment.ChannelAPI, prescriber, meds, report, risk)
}

func TestOutboxEntries_ValidPrescription(t *testing.T) {
	r := record(t, "BS. Trần Thị Bình", []prescription.Medication{
		{Name: "Metformin", Dosage: "500mg", ScheduleCode: "sang", Duration: "30 ngày"},
	})

	entries, err := OutboxEntries(r)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, redpanda.TopicAssessments, e.KafkaTopic)
	assert.Equal(t, r.ID, e.KafkaKey)
	assert.Equal(t, r.ID, e.AggregateID)
	assert.Equal(t, assessment.AggregateType, e.AggregateType)
	assert.Equal(t, string(assessment.EventAssessmentRecorded), e.EventType)

	var event assessment.Event
	require.NoError(t, json.Unmarshal(e.Payload, &event))
	assert.Equal(t, assessment.EventAssessmentRecorded, event.EventType)
}

func TestOutboxEntries_HighRiskAddsAlert(t *testing.T) {
	r := record(t, "", []prescription.Medication{{Name: "A"}, {Name: "B"}, {Name: "C"}})

	entries, err := OutboxEntries(r)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, redpanda.TopicAssessments, entries[0].KafkaTopic)
	assert.Equal(t, redpanda.TopicRiskAlerts, entries[1].KafkaTopic)
	assert.Equal(t, string(assessment.EventHighRiskDetected), entries[1].EventType)
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("x"))
	assert.Equal(t, "x", *nullable("x"))
}
