package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

type fixedSnapshots struct{ snap *reference.Snapshot }

func (f fixedSnapshots) Current() *reference.Snapshot { return f.snap }

type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*assessment.Record
	err     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]*assessment.Record)}
}

func (r *memoryRepo) Save(ctx context.Context, rec *assessment.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*assessment.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, assessment.ErrNotFound
	}
	return rec, nil
}

func testSnapshots() fixedSnapshots {
	v := prescription.NewValidator(
		prescription.NewFormulary([]prescription.Drug{
			{Name: "Metformin", MaxDailyDose: 2000, Unit: "mg"},
			{Name: "Warfarin", MaxDailyDose: 10, Unit: "mg", Interactions: []string{"Aspirin"}},
			{Name: "Aspirin", MaxDailyDose: 325, Unit: "mg"},
		}),
		prescription.NewScheduleCatalog([]prescription.Schedule{
			{Code: "sang", TimeSlots: []string{"07:00"}},
			{Code: "sang-toi", TimeSlots: []string{"07:00", "19:00"}},
		}),
	)
	return fixedSnapshots{snap: &reference.Snapshot{Validator: v, Source: "test", Version: "t1"}}
}

func validRequest() Request {
	return Request{
		Prescriber: "BS. Nguyễn Văn An",
		Medications: []prescription.Medication{
			{Name: "Metformin", Dosage: "500mg", ScheduleCode: "sang-toi", Duration: "30 ngày"},
		},
	}
}

func TestCheck_Valid(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := New(testSnapshots(), nil, m, nil)

	res, err := svc.Check(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, res.ActiveCount)
	assert.Empty(t, res.Issues)
	assert.Equal(t, prescription.RiskLow, res.Risk.Level)
	assert.Equal(t, "t1", res.ReferenceVersion)
	assert.False(t, svc.AuditEnabled())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("api", "true")))
}

func TestCheck_CountsIssues(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := New(testSnapshots(), nil, m, nil)

	req := validRequest()
	req.Prescriber = ""
	req.Channel = assessment.ChannelFHIR
	res, err := svc.Check(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, 1, res.Summary.Errors)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("fhir", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues(string(prescription.CodeDoctorRequired), "error")))
}

func TestCheck_PersistsWhenAuditEnabled(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(testSnapshots(), repo, nil, nil)

	req := validRequest()
	req.Medications = append(req.Medications,
		prescription.Medication{Name: "Warfarin", Dosage: "5mg", ScheduleCode: "sang", Duration: "7 ngày"},
		prescription.Medication{Name: "Aspirin", Dosage: "81mg", ScheduleCode: "sang", Duration: "7 ngày"},
	)
	req.CorrelationID = "req-42"

	res, err := svc.Check(context.Background(), req)
	require.NoError(t, err)

	rec, err := svc.Assessment(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.ReferenceVersion)
	assert.Equal(t, "req-42", rec.CorrelationID)
	assert.Equal(t, assessment.ChannelAPI, rec.Channel)
	assert.Len(t, rec.Medications, 3)
	assert.Equal(t, res.Risk, rec.Risk)

	_, err = svc.Assessment(context.Background(), "missing")
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestCheck_SaveFailureFailsCheck(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("connection reset")
	svc := New(testSnapshots(), repo, nil, nil)

	_, err := svc.Check(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save assessment")
}

func TestCheck_CancelledContext(t *testing.T) {
	svc := New(testSnapshots(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Check(ctx, validRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_NoSnapshot(t *testing.T) {
	svc := New(fixedSnapshots{}, nil, nil, nil)
	_, err := svc.Check(context.Background(), validRequest())
	assert.Error(t, err)
}

func TestAssessment_AuditDisabled(t *testing.T) {
	svc := New(testSnapshots(), nil, nil, nil)
	_, err := svc.Assessment(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAuditDisabled)
}

func TestReference(t *testing.T) {
	svc := New(testSnapshots(), nil, nil, nil)
	formulary, schedules, snap := svc.Reference()
	require.NotNil(t, snap)
	assert.Equal(t, 3, formulary.Len())
	assert.Equal(t, 2, schedules.Len())
}
