package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	return cfg
}

func TestRun_OpensAfterConsecutiveFailures(t *testing.T) {
	var mu sync.Mutex
	var transitions []State
	cb, err := New(testConfig("broker"), nil, func(name string, to State) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "broker", name)
		transitions = append(transitions, to)
	})
	require.NoError(t, err)

	boom := errors.New("broker unavailable")
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Run(context.Background(), func(context.Context) error { return boom }), boom)
	}

	called := false
	err = cb.Run(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
	assert.Equal(t, StateOpen, cb.State())
	mu.Lock()
	assert.Equal(t, []State{StateOpen}, transitions)
	mu.Unlock()
}

func TestRun_CanceledCallsDoNotTrip(t *testing.T) {
	cb, err := New(testConfig("broker"), nil, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_ = cb.Run(context.Background(), func(context.Context) error { return context.Canceled })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestDo_ReturnsValue(t *testing.T) {
	cb, err := New(testConfig("s3"), nil, nil)
	require.NoError(t, err)

	got, err := Do(context.Background(), cb, func(context.Context) (string, error) { return "payload", nil })

	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, uint32(1), cb.Counts().TotalSuccesses)
}

func TestManager(t *testing.T) {
	m := NewManager(testConfig("ignored"), nil, nil)

	a, err := m.Get("prescription.assessments")
	require.NoError(t, err)
	again, err := m.Get("prescription.assessments")
	require.NoError(t, err)
	b, err := m.Get("dead.letter")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.Equal(t, "prescription.assessments", a.Name())

	for i := 0; i < 2; i++ {
		_ = b.Run(context.Background(), func(context.Context) error { return errors.New("down") })
	}
	health := m.Health()
	require.Len(t, health, 2)
	assert.Equal(t, "dead.letter", health[0].Name)
	assert.False(t, health[0].Healthy)
	assert.Equal(t, StateOpen, health[0].State)
	assert.True(t, health[1].Healthy)
}

func TestStateLevel(t *testing.T) {
	assert.Equal(t, 0.0, StateClosed.Level())
	assert.Equal(t, 1.0, StateHalfOpen.Level())
	assert.Equal(t, 2.0, StateOpen.Level())
}
