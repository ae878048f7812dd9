package assessment

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
)

func evaluate(prescriber string, meds []prescription.Medication) (*prescription.Report, prescription.RiskAssessment) {
	v := prescription.NewValidator(
		prescription.NewFormulary([]prescription.Drug{{Name: "Metformin", MaxDailyDose: 2000, Unit: "mg"}}),
		prescription.NewScheduleCatalog([]prescription.Schedule{{Code: "sang", TimeSlots: []string{"07:00"}}}),
	)
	return v.Evaluate(prescriber, meds)
}

func TestNewRecord(t *testing.T) {
	meds := []prescription.Medication{{Name: "Metformin", Dosage: "500mg", ScheduleCode: "sang", Duration: "30 ngày"}}
	report, risk := evaluate("BS. Nguyễn Văn An", meds)

	r := NewRecord(ChannelAPI, "BS. Nguyễn Văn An", meds, report, risk)

	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, 1, r.ActiveCount)
	assert.NotNil(t, r.Issues)
	assert.False(t, r.CreatedAt.IsZero())

	meds[0].Name = "changed"
	assert.Equal(t, "Metformin", r.Medications[0].Name)
}

func TestEvents_LowRiskPublishesOnlyRecorded(t *testing.T) {
	report, risk := evaluate("BS. Nguyễn Văn An", []prescription.Medication{
		{Name: "Metformin", Dosage: "500mg", ScheduleCode: "sang", Duration: "30 ngày"},
	})
	r := NewRecord(ChannelAPI, "BS. Nguyễn Văn An", nil, report, risk)
	r.CorrelationID = "req-1"

	events, err := r.Events()

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAssessmentRecorded, events[0].EventType)
	assert.Equal(t, r.ID, events[0].AggregateID)
	assert.Equal(t, AggregateType, events[0].AggregateType)
	assert.Equal(t, "req-1", events[0].CorrelationID)

	var data RecordedData
	require.NoError(t, json.Unmarshal(events[0].EventData, &data))
	assert.True(t, data.Valid)
	assert.Equal(t, prescription.RiskLow, data.Level)
}

func TestEvents_HighRiskAddsAlert(t *testing.T) {
	// missing prescriber, three broken rows: well past the high band
	report, risk := evaluate("", []prescription.Medication{{Name: "X"}, {Name: "Y"}, {Name: "Z"}})
	require.Equal(t, prescription.RiskHigh, risk.Level)
	r := NewRecord(ChannelBatch, "", nil, report, risk)

	events, err := r.Events()

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventHighRiskDetected, events[1].EventType)

	var alert RiskAlertData
	require.NoError(t, json.Unmarshal(events[1].EventData, &alert))
	assert.Equal(t, prescription.MaxRiskScore, alert.Score)
	assert.Contains(t, alert.Blocking, prescription.CodeDoctorRequired)
	assert.NotEmpty(t, alert.Factors)
}
