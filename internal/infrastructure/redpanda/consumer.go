package redpanda

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConsumerConfig holds configuration for the Redpanda consumer
type ConsumerConfig struct {
	Brokers []string
	// GroupID is the consumer group ID
	GroupID string
	// Topics is the list of topics to consume
	Topics         []string
	SessionTimeout time.Duration
	// MaxPollRecords is the maximum records handed to the handler at once
	MaxPollRecords int
	// FetchMaxBytes is the maximum fetch size
	FetchMaxBytes int32
	// StartOffset is the initial offset for a new group (earliest or latest)
	StartOffset string
	// RetryBackoff is the pause before re-fetching a failed batch
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns defaults for the revalidation worker
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "rxcheck-revalidation",
		SessionTimeout: 30 * time.Second,
		MaxPollRecords: 200,
		FetchMaxBytes:  50 << 20,
		StartOffset:    "earliest",
		RetryBackoff:   time.Second,
	}
}

// ConsumedMessage represents a consumed Kafka message
type ConsumedMessage struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// BatchHandler processes one poll worth of messages. Returning an error
// leaves the batch uncommitted and rewinds it for redelivery.
type BatchHandler func(ctx context.Context, msgs []*ConsumedMessage) error

// MessageHandler is called for each consumed message
type MessageHandler func(ctx context.Context, msg *ConsumedMessage) error

// Sequential runs h over a batch in order and stops at the first error
func Sequential(h MessageHandler) BatchHandler {
	return func(ctx context.Context, msgs []*ConsumedMessage) error {
		for _, msg := range msgs {
			if err := h(ctx, msg); err != nil {
				return fmt.Errorf("%s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
		}
		return nil
	}
}

// Consumer reads from a consumer group and commits only after the handler
// accepts a batch
type Consumer struct {
	client  *kgo.Client
	config  ConsumerConfig
	logger  *zap.Logger
	tracer  trace.Tracer
	handler BatchHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.RWMutex
	messagesRead   int64
	bytesRead      int64
	errorCount     int64
	lastCommitTime time.Time
}

// NewConsumer creates a new Redpanda consumer
func NewConsumer(cfg ConsumerConfig, handler BatchHandler, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.FetchMaxBytes(cfg.FetchMaxBytes),
		kgo.AutoCommitMarks(),
		kgo.OnPartitionsAssigned(func(ctx context.Context, client *kgo.Client, assigned map[string][]int32) {
			logger.Info("partitions assigned", zap.Any("partitions", assigned))
		}),
		kgo.OnPartitionsRevoked(func(ctx context.Context, client *kgo.Client, revoked map[string][]int32) {
			logger.Info("partitions revoked", zap.Any("partitions", revoked))
			if err := client.CommitMarkedOffsets(ctx); err != nil {
				logger.Warn("commit on revoke failed", zap.Error(err))
			}
		}),
	}

	switch cfg.StartOffset {
	case "latest":
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()))
	default:
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		config:  cfg,
		logger:  logger,
		tracer:  otel.Tracer("redpanda-consumer"),
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins consuming messages
func (c *Consumer) Start() {
	c.wg.Add(1)
	go c.consumeLoop()
}

// Stop waits for the in-flight batch, commits and closes the client
func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if err = c.client.CommitMarkedOffsets(ctx); err != nil {
		c.logger.Warn("error committing offsets on stop", zap.Error(err))
	}

	c.client.Close()
	return err
}

func (c *Consumer) consumeLoop() {
	defer c.wg.Done()

	for {
		fetches := c.client.PollRecords(c.ctx, c.config.MaxPollRecords)
		if fetches.IsClientClosed() || c.ctx.Err() != nil {
			return
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch error",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err))
			c.incrementErrorCount()
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}
		if err := c.processBatch(records); err != nil {
			c.rewind(records)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(c.config.RetryBackoff):
			}
		}
	}
}

func (c *Consumer) processBatch(records []*kgo.Record) error {
	ctx, span := c.tracer.Start(c.ctx, "process_batch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.Int("batch_size", len(records))))
	defer span.End()

	msgs := make([]*ConsumedMessage, 0, len(records))
	var bytes int
	for _, record := range records {
		msgs = append(msgs, toMessage(record))
		bytes += len(record.Value)
	}

	if err := c.handler(messageContext(ctx, records), msgs); err != nil {
		c.logger.Error("batch handler failed",
			zap.Int("batch_size", len(records)),
			zap.Error(err))
		span.RecordError(err)
		c.incrementErrorCount()
		return err
	}

	c.incrementMetrics(len(records), bytes)

	c.client.MarkCommitRecords(records...)
	if err := c.client.CommitMarkedOffsets(ctx); err != nil {
		// marked offsets stay pending and go out with the next commit
		c.logger.Warn("failed to commit offsets", zap.Error(err))
		span.RecordError(err)
		return nil
	}
	c.mu.Lock()
	c.lastCommitTime = time.Now()
	c.mu.Unlock()
	return nil
}

// rewind moves each partition of a failed batch back to its first record
func (c *Consumer) rewind(records []*kgo.Record) {
	offsets := RewindOffsets(records)
	c.client.SetOffsets(offsets)
	for topic, partitions := range offsets {
		for partition, eo := range partitions {
			c.logger.Warn("rewinding partition after failed batch",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", eo.Offset))
		}
	}
}

// RewindOffsets returns the lowest offset per topic partition in records
func RewindOffsets(records []*kgo.Record) map[string]map[int32]kgo.EpochOffset {
	out := make(map[string]map[int32]kgo.EpochOffset)
	for _, r := range records {
		parts, ok := out[r.Topic]
		if !ok {
			parts = make(map[int32]kgo.EpochOffset)
			out[r.Topic] = parts
		}
		if cur, ok := parts[r.Partition]; !ok || r.Offset < cur.Offset {
			parts[r.Partition] = kgo.EpochOffset{Epoch: r.LeaderEpoch, Offset: r.Offset}
		}
	}
	return out
}

// messageContext links the batch span to the producer of a single-record
// batch. Larger batches keep the local span only.
func messageContext(ctx context.Context, records []*kgo.Record) context.Context {
	if len(records) != 1 {
		return ctx
	}
	remote := trace.SpanContextFromContext(extractTraceContext(context.Background(), records[0]))
	if !remote.IsValid() {
		return ctx
	}
	trace.SpanFromContext(ctx).AddLink(trace.Link{SpanContext: remote})
	return ctx
}

func toMessage(record *kgo.Record) *ConsumedMessage {
	msg := &ConsumedMessage{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Headers:   make(map[string]string, len(record.Headers)),
		Timestamp: record.Timestamp,
	}
	for _, h := range record.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Stats returns current consumer statistics
func (c *Consumer) Stats() ConsumerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ConsumerStats{
		MessagesRead:   c.messagesRead,
		BytesRead:      c.bytesRead,
		ErrorCount:     c.errorCount,
		LastCommitTime: c.lastCommitTime,
	}
}

// ConsumerStats holds consumer statistics
type ConsumerStats struct {
	MessagesRead   int64     `json:"messages_read"`
	BytesRead      int64     `json:"bytes_read"`
	ErrorCount     int64     `json:"error_count"`
	LastCommitTime time.Time `json:"last_commit_time"`
}

func (c *Consumer) incrementMetrics(count, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesRead += int64(count)
	c.bytesRead += int64(bytes)
}

func (c *Consumer) incrementErrorCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}
