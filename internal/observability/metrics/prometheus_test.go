package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveValidation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveValidation("api", false, 40, "medium", 2*time.Millisecond)
	m.ObserveValidation("api", true, 0, "low", time.Millisecond)
	m.ObserveValidation("batch", true, 0, "low", time.Millisecond)
	m.ObserveIssue("DOCTOR_REQUIRED", "error")
	m.ObserveIssue("DOCTOR_REQUIRED", "error")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("api", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("api", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RiskLevelTotal.WithLabelValues("low")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues("DOCTOR_REQUIRED", "error")))
}

func TestSetReference(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Unix(1700000000, 0)

	m.SetReference(28, 9, at)

	assert.Equal(t, 28.0, testutil.ToFloat64(m.ReferenceEntries.WithLabelValues("drugs")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.ReferenceEntries.WithLabelValues("schedules")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.ReferenceLoadedAt))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveValidation("api", true, 0, "low", 0)
		m.ObserveIssue("X", "info")
		m.SetReference(1, 1, time.Now())
		m.ObserveProduced("t")
		m.ObserveConsumed("t")
		m.ObserveDuplicate()
		m.SetOutboxPending(1)
		m.SetBreakerState("t", 2)
		m.SetQueueDepth(1)
	})
}

func TestPipelineGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveProduced("prescription.assessments")
	m.ObserveProduced("prescription.assessments")
	m.ObserveConsumed("prescription.validation-requests")
	m.ObserveDuplicate()
	m.SetOutboxPending(12)
	m.SetBreakerState("prescription.assessments", 2)
	m.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.KafkaMessagesProduced.WithLabelValues("prescription.assessments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("prescription.validation-requests")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateMessages))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.OutboxPending))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("prescription.assessments")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WorkerQueueDepth))
}
