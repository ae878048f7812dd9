package redpanda

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/pkg/circuitbreaker"
)

// Sender produces a single message
type Sender interface {
	ProduceMessage(ctx context.Context, topic, key string, value []byte) error
}

// Publisher guards a Sender with one circuit breaker per topic so that a
// failing topic stops consuming broker retries for the others
type Publisher struct {
	sender   Sender
	breakers *circuitbreaker.Manager
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewPublisher creates a publisher. m may be nil.
func NewPublisher(sender Sender, breakers *circuitbreaker.Manager, m *metrics.Metrics, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{sender: sender, breakers: breakers, metrics: m, logger: logger}
}

// Publish sends value to topic through the topic's breaker
func (p *Publisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	cb, err := p.breakers.Get(topic)
	if err != nil {
		return fmt.Errorf("breaker for %s: %w", topic, err)
	}
	err = cb.Run(ctx, func(ctx context.Context) error {
		return p.sender.ProduceMessage(ctx, topic, key, value)
	})
	if err != nil {
		return err
	}
	p.metrics.ObserveProduced(topic)
	return nil
}

// Health reports the state of every topic breaker
func (p *Publisher) Health() []circuitbreaker.HealthStatus {
	return p.breakers.Health()
}

// BreakerGauge returns a state listener that mirrors transitions into the
// breaker gauge and the log
func BreakerGauge(m *metrics.Metrics, logger *zap.Logger) circuitbreaker.StateListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(name string, to circuitbreaker.State) {
		m.SetBreakerState(name, to.Level())
		if to == circuitbreaker.StateOpen {
			logger.Warn("publishing suspended", zap.String("topic", name))
		}
	}
}
