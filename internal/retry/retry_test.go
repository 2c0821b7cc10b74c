package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noSleep(durations *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*durations = append(*durations, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), noSleep(&waits), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, waits)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), noSleep(&waits), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), noSleep(&waits), func(context.Context) error {
		calls++
		return errors.New("remote errors field present")
	})

	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 3, calls)
	// Linear schedule: 2s then 4s, non-decreasing.
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
	// The remote error text never appears in the terminal error.
	require.NotContains(t, err.Error(), "remote errors field present")
}

func TestDo_StopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, DefaultPolicy(), nil, func(context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDo_SleepErrorAborts(t *testing.T) {
	t.Parallel()

	sleepErr := errors.New("backoff interrupted")
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(context.Context, time.Duration) error {
		return sleepErr
	}, func(context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.ErrorIs(t, err, sleepErr)
	require.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Policy{}, nil, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestSleep_RespectsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, Sleep(context.Background(), 0))
}

func TestPolicyBackoffIsLinear(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	require.Equal(t, 2*time.Second, p.Backoff(1))
	require.Equal(t, 4*time.Second, p.Backoff(2))
	require.Equal(t, 6*time.Second, p.Backoff(3))
}
