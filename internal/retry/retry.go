// Package retry provides a bounded retry combinator for outbound calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt has failed. The underlying
// errors are logged by the caller, not carried in the message, so remote
// error text never leaks into responses.
var ErrExhausted = errors.New("all retry attempts failed, check server logs")

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultPolicy matches the deployed relay behavior: three attempts with
// waits of 2s then 4s between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second}
}

// Backoff returns the wait inserted after the given 1-based attempt fails.
// The schedule is linear in the attempt count, not exponential.
func (p Policy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffBase
}

// Sleeper waits for a duration, honoring context cancellation. Injectable
// so tests can observe the schedule without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Do runs op until it succeeds or the policy is exhausted. Every error
// counts as a failed attempt; context cancellation stops the loop
// immediately. On exhaustion the returned error wraps ErrExhausted.
func Do(ctx context.Context, policy Policy, sleep Sleeper, op func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, policy.Backoff(attempt-1)); err != nil {
				return err
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %d attempts", ErrExhausted, policy.MaxAttempts)
}
