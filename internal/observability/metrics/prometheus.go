// Package metrics provides Prometheus metrics for the validation service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ValidationsTotal      *prometheus.CounterVec
	IssuesTotal           *prometheus.CounterVec
	RiskScore             prometheus.Histogram
	RiskLevelTotal        *prometheus.CounterVec
	ValidationDuration    prometheus.Histogram
	ReferenceEntries      *prometheus.GaugeVec
	ReferenceLoadedAt     prometheus.Gauge
	KafkaMessagesProduced *prometheus.CounterVec
	KafkaMessagesConsumed *prometheus.CounterVec
	DuplicateMessages     prometheus.Counter
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
	WorkerQueueDepth      prometheus.Gauge
}

// New creates all metrics and registers them with reg. A nil registerer
// means the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prescription_validations_total",
			Help: "Total prescription validations by channel and validity",
		}, []string{"channel", "valid"}),
		IssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prescription_issues_total",
			Help: "Total validation issues by code and severity",
		}, []string{"code", "severity"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prescription_risk_score",
			Help:    "Distribution of prescription risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		RiskLevelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prescription_risk_level_total",
			Help: "Total assessments by risk level",
		}, []string{"level"}),
		ValidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prescription_validation_duration_seconds",
			Help:    "Validation and scoring duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		ReferenceEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reference_entries",
			Help: "Loaded reference entries by kind",
		}, []string{"kind"}),
		ReferenceLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reference_loaded_timestamp_seconds",
			Help: "Unix time of the last successful reference load",
		}),
		KafkaMessagesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}, []string{"topic"}),
		KafkaMessagesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}, []string{"topic"}),
		DuplicateMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_duplicate_messages_total",
			Help: "Messages skipped by the idempotency inbox",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		WorkerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Jobs waiting in the revalidation worker pool",
		}),
	}

	reg.MustRegister(
		m.ValidationsTotal,
		m.IssuesTotal,
		m.RiskScore,
		m.RiskLevelTotal,
		m.ValidationDuration,
		m.ReferenceEntries,
		m.ReferenceLoadedAt,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.DuplicateMessages,
		m.OutboxPending,
		m.CircuitBreakerState,
		m.WorkerQueueDepth,
	)

	return m
}

// ObserveValidation records one validation outcome
func (m *Metrics) ObserveValidation(channel string, valid bool, score int, level string, d time.Duration) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(channel, strconv.FormatBool(valid)).Inc()
	m.RiskScore.Observe(float64(score))
	m.RiskLevelTotal.WithLabelValues(level).Inc()
	m.ValidationDuration.Observe(d.Seconds())
}

// ObserveIssue counts one issue
func (m *Metrics) ObserveIssue(code, severity string) {
	if m == nil {
		return
	}
	m.IssuesTotal.WithLabelValues(code, severity).Inc()
}

// SetReference records the size of the loaded reference data
func (m *Metrics) SetReference(drugs, schedules int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.ReferenceEntries.WithLabelValues("drugs").Set(float64(drugs))
	m.ReferenceEntries.WithLabelValues("schedules").Set(float64(schedules))
	m.ReferenceLoadedAt.Set(float64(loadedAt.Unix()))
}

// ObserveProduced counts a message written to topic
func (m *Metrics) ObserveProduced(topic string) {
	if m == nil {
		return
	}
	m.KafkaMessagesProduced.WithLabelValues(topic).Inc()
}

// ObserveConsumed counts a message read from topic
func (m *Metrics) ObserveConsumed(topic string) {
	if m == nil {
		return
	}
	m.KafkaMessagesConsumed.WithLabelValues(topic).Inc()
}

// ObserveDuplicate counts a redelivered message skipped by the inbox
func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateMessages.Inc()
}

// SetOutboxPending sets the pending outbox gauge
func (m *Metrics) SetOutboxPending(n int64) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// SetBreakerState sets the gauge for one breaker
func (m *Metrics) SetBreakerState(name string, level float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(level)
}

// SetQueueDepth sets the worker queue gauge
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.WorkerQueueDepth.Set(float64(depth))
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
