package redpanda

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/pkg/circuitbreaker"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeSender) ProduceMessage(ctx context.Context, topic, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, topic+"/"+key)
	return nil
}

func newTestPublisher(sender Sender) (*Publisher, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	cfg := circuitbreaker.DefaultConfig("")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	breakers := circuitbreaker.NewManager(cfg, nil, BreakerGauge(m, nil))
	return NewPublisher(sender, breakers, m, nil), m
}

func TestPublisher_Publish(t *testing.T) {
	sender := &fakeSender{}
	p, m := newTestPublisher(sender)

	require.NoError(t, p.Publish(context.Background(), TopicAssessments, "a-1", []byte(`{}`)))
	require.NoError(t, p.Publish(context.Background(), TopicRiskAlerts, "a-1", []byte(`{}`)))

	assert.Equal(t, []string{"prescription.assessments/a-1", "prescription.risk-alerts/a-1"}, sender.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesProduced.WithLabelValues(TopicAssessments)))
}

func TestPublisher_OpensPerTopic(t *testing.T) {
	sender := &fakeSender{err: errors.New("broker down")}
	p, m := newTestPublisher(sender)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.Error(t, p.Publish(ctx, TopicAssessments, "k", nil))
	}
	err := p.Publish(ctx, TopicAssessments, "k", nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues(TopicAssessments)))

	// another topic keeps its own breaker
	sender.err = nil
	assert.NoError(t, p.Publish(ctx, TopicDeadLetter, "k", nil))

	health := p.Health()
	require.Len(t, health, 2)
	assert.Equal(t, TopicDeadLetter, health[0].Name)
	assert.True(t, health[0].Healthy)
	assert.False(t, health[1].Healthy)
}
