package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestInbox() (*Inbox, *MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	inbox := NewInbox(store, DefaultConfig(), nil)
	inbox.now = c.now
	return inbox, store, c
}

func TestProcess_RunsOnceAndReplaysResult(t *testing.T) {
	inbox, _, _ := newTestInbox()
	calls := 0
	fn := func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"valid":true}`), nil
	}

	first, err := inbox.Process(context.Background(), "k1", "revalidate", json.RawMessage(`{}`), fn)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := inbox.Process(context.Background(), "k1", "revalidate", json.RawMessage(`{}`), fn)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.JSONEq(t, `{"valid":true}`, string(second.Result))
	assert.Equal(t, 1, calls)
}

func TestProcess_RecoverableErrorAllowsRetry(t *testing.T) {
	inbox, store, _ := newTestInbox()
	fail := true
	fn := func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if fail {
			return nil, errors.New("broker unavailable")
		}
		return json.RawMessage(`"ok"`), nil
	}

	_, err := inbox.Process(context.Background(), "k", "h", nil, fn)
	require.Error(t, err)
	entry, _ := store.Get(context.Background(), "k")
	assert.Equal(t, StatusRecoverable, entry.Status)

	fail = false
	res, err := inbox.Process(context.Background(), "k", "h", nil, fn)
	require.NoError(t, err)
	assert.True(t, res.WasRecovered)
	entry, _ = store.Get(context.Background(), "k")
	assert.Equal(t, StatusFinished, entry.Status)
}

func TestProcess_TerminalErrorIsFinal(t *testing.T) {
	inbox, _, _ := newTestInbox()
	bad := errors.New("malformed request")
	calls := 0
	fn := func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		calls++
		return nil, Terminal(bad)
	}

	_, err := inbox.Process(context.Background(), "k", "h", nil, fn)
	assert.ErrorIs(t, err, bad)
	assert.True(t, IsTerminal(err))

	_, err = inbox.Process(context.Background(), "k", "h", nil, fn)
	assert.ErrorIs(t, err, ErrPreviouslyFailed)
	assert.Equal(t, 1, calls)
}

func TestProcess_InProgressAndStaleRecovery(t *testing.T) {
	inbox, store, c := newTestInbox()
	require.NoError(t, store.Start(context.Background(), "k", "h", nil, c.t.Add(time.Hour)))

	_, err := inbox.Process(context.Background(), "k", "h", nil, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		t.Fatal("must not run while another handler holds the key")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrMessageInProgress)

	c.t = c.t.Add(10 * time.Minute)
	res, err := inbox.Process(context.Background(), "k", "h", nil, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`1`), nil
	})
	require.NoError(t, err)
	assert.True(t, res.WasRecovered)
}

func TestCleanup(t *testing.T) {
	inbox, store, c := newTestInbox()
	ok := func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) { return json.RawMessage(`1`), nil }
	_, err := inbox.Process(context.Background(), "old", "h", nil, ok)
	require.NoError(t, err)

	c.t = c.t.Add(8 * 24 * time.Hour)
	_, err = inbox.Process(context.Background(), "new", "h", nil, ok)
	require.NoError(t, err)

	n, err := inbox.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(context.Background(), "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(context.Background(), "new")
	assert.NoError(t, err)
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("BS. Nguyễn Văn An", "Metformin", "500mg")
	assert.Len(t, a, 64)
	assert.Equal(t, a, GenerateKey(" BS. Nguyễn Văn An ", "Metformin", "500mg"))
	assert.NotEqual(t, a, GenerateKey("BS. Nguyễn Văn An", "Metformin500mg", ""))
	assert.NotEqual(t, GenerateKey("ab", "c"), GenerateKey("a", "bc"))
}
