// Package revalidation checks prescriptions submitted in bulk over Kafka and
// publishes one result per request.
package revalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
	"github.com/khoadang148/carehome-system-sub011/internal/observability/metrics"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
	"github.com/khoadang148/carehome-system-sub011/pkg/idempotency"
	"github.com/khoadang148/carehome-system-sub011/pkg/workerpool"
)

// HandlerName identifies this consumer in the inbox table
const HandlerName = "revalidation"

// Request is the message body on the validation requests topic
type Request struct {
	RequestID   string                    `json:"request_id,omitempty"`
	Prescriber  string                    `json:"prescriber"`
	Medications []prescription.Medication `json:"medications"`
}

// Key derives the idempotency key from the prescription content. Identical
// prescriptions share a key regardless of request ID.
func (r Request) Key() string {
	parts := make([]string, 0, 1+5*len(r.Medications))
	parts = append(parts, r.Prescriber)
	for _, m := range r.Medications {
		parts = append(parts, m.Name, m.Dosage, m.ScheduleCode, m.Duration, m.Instructions)
	}
	return idempotency.GenerateKey(parts...)
}

// Response is published on the validation results topic
type Response struct {
	RequestID      string          `json:"request_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Duplicate      bool            `json:"duplicate"`
	Result         json.RawMessage `json:"result"`
	ProcessedAt    time.Time       `json:"processed_at"`
}

// Checker runs one prescription check
type Checker interface {
	Check(ctx context.Context, req service.Request) (*service.Result, error)
}

// Publisher sends one message
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Processor handles batches from the consumer
type Processor struct {
	checker   Checker
	inbox     *idempotency.Inbox
	publisher Publisher
	pool      *workerpool.Pool[*redpanda.ConsumedMessage, *Response]
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProcessor creates a processor and its worker pool. Call Stop to release
// the workers.
func NewProcessor(checker Checker, inbox *idempotency.Inbox, publisher Publisher, poolCfg workerpool.Config, m *metrics.Metrics, logger *zap.Logger) (*Processor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		checker:   checker,
		inbox:     inbox,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("revalidation"),
		now:       time.Now,
	}
	pool, err := workerpool.New(poolCfg, p.handle, logger, workerpool.WithQueueObserver(m.SetQueueDepth))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	p.pool = pool
	return p, nil
}

// Stop drains the worker pool
func (p *Processor) Stop() {
	p.pool.Stop()
}

// HandleBatch checks every message in parallel and publishes the results in
// input order. Any retryable failure fails the whole batch so the consumer
// redelivers it; the inbox makes the replay cheap.
func (p *Processor) HandleBatch(ctx context.Context, msgs []*redpanda.ConsumedMessage) error {
	ctx, span := p.tracer.Start(ctx, "revalidation.batch",
		trace.WithAttributes(attribute.Int("batch_size", len(msgs))))
	defer span.End()

	outcomes, err := p.pool.Process(ctx, msgs)
	if err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	var failed []error
	for i, outcome := range outcomes {
		msg := msgs[i]
		p.metrics.ObserveConsumed(msg.Topic)
		switch {
		case outcome.Err == nil:
			if err := p.publishResult(ctx, outcome.Value); err != nil {
				failed = append(failed, err)
			}
		case workerpool.IsPermanent(outcome.Err):
			if err := p.deadLetter(ctx, msg, outcome.Err); err != nil {
				failed = append(failed, err)
			}
		default:
			failed = append(failed, fmt.Errorf("offset %d: %w", msg.Offset, outcome.Err))
		}
	}
	if len(failed) > 0 {
		err := errors.Join(failed...)
		span.RecordError(err)
		return err
	}
	return nil
}

func (p *Processor) handle(ctx context.Context, msg *redpanda.ConsumedMessage) (*Response, error) {
	var req Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return nil, workerpool.Permanent(fmt.Errorf("decode request: %w", err))
	}
	if req.RequestID == "" {
		req.RequestID = string(msg.Key)
	}
	key := req.Key()

	res, err := p.inbox.Process(ctx, key, HandlerName, msg.Value, func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		result, err := p.checker.Check(ctx, service.Request{
			Prescriber:    req.Prescriber,
			Medications:   req.Medications,
			Channel:       assessment.ChannelBatch,
			CorrelationID: req.RequestID,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	switch {
	case errors.Is(err, idempotency.ErrPreviouslyFailed):
		return nil, workerpool.Permanent(err)
	case err != nil:
		return nil, err
	}

	if res.Duplicate {
		p.metrics.ObserveDuplicate()
		p.logger.Debug("duplicate revalidation request",
			zap.String("request_id", req.RequestID),
			zap.String("key", key))
	}

	return &Response{
		RequestID:      req.RequestID,
		IdempotencyKey: key,
		Duplicate:      res.Duplicate,
		Result:         res.Result,
		ProcessedAt:    p.now().UTC(),
	}, nil
}

func (p *Processor) publishResult(ctx context.Context, resp *Response) error {
	value, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := p.publisher.Publish(ctx, redpanda.TopicValidationResults, resp.IdempotencyKey, value); err != nil {
		return fmt.Errorf("publish result %s: %w", resp.RequestID, err)
	}
	return nil
}

// DeadLetter is published for requests that can never succeed
type DeadLetter struct {
	Topic     string          `json:"topic"`
	Partition int32           `json:"partition"`
	Offset    int64           `json:"offset"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error"`
	FailedAt  time.Time       `json:"failed_at"`
}

func (p *Processor) deadLetter(ctx context.Context, msg *redpanda.ConsumedMessage, cause error) error {
	p.logger.Warn("revalidation request dead-lettered",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(cause))

	dl := DeadLetter{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       string(msg.Key),
		Error:     cause.Error(),
		FailedAt:  p.now().UTC(),
	}
	if json.Valid(msg.Value) {
		dl.Payload = msg.Value
	}
	value, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	return p.publisher.Publish(ctx, redpanda.TopicDeadLetter, string(msg.Key), value)
}
