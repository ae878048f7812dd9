package redpanda

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/trace"
)

func TestRewindOffsets(t *testing.T) {
	records := []*kgo.Record{
		{Topic: "a", Partition: 0, Offset: 12, LeaderEpoch: 3},
		{Topic: "a", Partition: 0, Offset: 10, LeaderEpoch: 3},
		{Topic: "a", Partition: 1, Offset: 4, LeaderEpoch: 1},
		{Topic: "b", Partition: 0, Offset: 7},
	}

	got := RewindOffsets(records)

	assert.Equal(t, kgo.EpochOffset{Epoch: 3, Offset: 10}, got["a"][0])
	assert.Equal(t, kgo.EpochOffset{Epoch: 1, Offset: 4}, got["a"][1])
	assert.Equal(t, int64(7), got["b"][0].Offset)
}

func TestSequential_StopsAtFirstError(t *testing.T) {
	var seen []int64
	boom := errors.New("boom")
	h := Sequential(func(ctx context.Context, msg *ConsumedMessage) error {
		seen = append(seen, msg.Offset)
		if msg.Offset == 2 {
			return boom
		}
		return nil
	})

	err := h(context.Background(), []*ConsumedMessage{
		{Topic: "t", Offset: 1}, {Topic: "t", Offset: 2}, {Topic: "t", Offset: 3},
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1, 2}, seen)
}

func TestToMessage(t *testing.T) {
	msg := toMessage(&kgo.Record{
		Topic:   "t",
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: []kgo.RecordHeader{{Key: "x-source", Value: []byte("cli")}},
	})

	assert.Equal(t, "k", string(msg.Key))
	assert.Equal(t, "cli", msg.Headers["x-source"])
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	record := &kgo.Record{}
	injectTraceHeaders(ctx, record)
	require.NotEmpty(t, headerCarrier{record: record}.Get("traceparent"))

	got := trace.SpanContextFromContext(extractTraceContext(context.Background(), record))
	assert.Equal(t, traceID, got.TraceID())
	assert.Equal(t, spanID, got.SpanID())
	assert.True(t, got.IsRemote())
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(DefaultConsumerConfig(), nil, nil)
	assert.Error(t, err)

	_, err = NewConsumer(DefaultConsumerConfig(), Sequential(func(context.Context, *ConsumedMessage) error { return nil }), nil)
	assert.Error(t, err)
}
