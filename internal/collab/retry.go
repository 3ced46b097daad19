package collab

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffPolicy shapes the delay between attempts.
type BackoffPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// RetryPolicy bounds how often a collaborator call is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffPolicy
}

// DefaultRetryPolicy returns three attempts with doubling backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffPolicy{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// NextDelay returns the wait before attempt n (1-based). A nil rng uses
// the midpoint of the jitter range.
func (b BackoffPolicy) NextDelay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return max(0, b.InitialDelay)
	}
	mult := max(1.0, b.Multiplier)
	delay := float64(b.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 1.0
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// CallError reports a collaborator call that failed on every attempt.
type CallError struct {
	Op       string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the last underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Retry calls fn until it succeeds, the policy runs out of attempts, or ctx
// is done. The first attempt runs immediately.
func Retry[T any](ctx context.Context, op string, p RetryPolicy, rng *rand.Rand, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(1, p.MaxAttempts)
	var last error
	for n := 1; n <= attempts; n++ {
		if n > 1 {
			wait := p.Backoff.NextDelay(n-1, rng)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, &CallError{Op: op, Attempts: n - 1, Err: ctx.Err()}
			case <-t.C:
			}
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		last = err
		slog.Warn("collaborator call failed", "op", op, "attempt", n, "error", err)
	}
	return zero, &CallError{Op: op, Attempts: attempts, Err: last}
}
