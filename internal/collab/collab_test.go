package collab

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffPolicy_NextDelay(t *testing.T) {
	b := BackoffPolicy{InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, b.NextDelay(1, nil))
	assert.Equal(t, 20*time.Millisecond, b.NextDelay(2, nil))
	assert.Equal(t, 40*time.Millisecond, b.NextDelay(3, nil))
	assert.Equal(t, 50*time.Millisecond, b.NextDelay(4, nil))

	b.Jitter = true
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		d := b.NextDelay(2, rng)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 30*time.Millisecond)
	}

	assert.Equal(t, time.Duration(0), BackoffPolicy{}.NextDelay(3, nil))
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: BackoffPolicy{InitialDelay: time.Millisecond}}
	calls := 0
	out, err := Retry(context.Background(), "complete", p, nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2}
	boom := errors.New("boom")
	_, err := Retry(context.Background(), "search", p, nil, func(context.Context) (int, error) {
		return 0, boom
	})
	require.Error(t, err)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, Backoff: BackoffPolicy{InitialDelay: time.Hour}}
	calls := 0
	_, err := Retry(ctx, "complete", p, nil, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestEchoCompleter(t *testing.T) {
	c, err := EchoCompleter{}.Complete(context.Background(), Prompt{Subject: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Re: hi", c.Text)
	assert.True(t, c.Done)
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Store(ctx, Memory{ID: "m1", Content: "Quarterly budget review"}))
	require.NoError(t, s.Store(ctx, Memory{ID: "m2", Content: "lunch", Tags: []string{"Budget"}}))
	require.NoError(t, s.Store(ctx, Memory{ID: "m3", Content: "unrelated"}))

	got, ok, err := s.Retrieve(ctx, "m2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "lunch", got.Content)

	_, ok, err = s.Retrieve(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	hits, err := s.Search(ctx, "budget", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "m1", hits[0].ID)
	assert.Equal(t, "m2", hits[1].ID)

	hits, err = s.Search(ctx, "budget", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
