package pattern

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	errBoom := errors.New("boom")
	fast := []RetryOption{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}

	cases := []struct {
		name      string
		failures  int
		opts      []RetryOption
		wantErr   error
		wantCalls int
	}{
		{name: "first attempt succeeds", failures: 0, opts: fast, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, opts: append(fast, WithMaxAttempts(5)), wantCalls: 3},
		{name: "attempts exhausted", failures: 10, opts: append(fast, WithMaxAttempts(3)), wantErr: errBoom, wantCalls: 3},
		{name: "not retriable", failures: 10, opts: append(fast, WithShouldRetry(func(error) bool { return false })), wantErr: errBoom, wantCalls: 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), func(attempt int) error {
				calls++
				require.Equal(t, calls, attempt)
				if calls <= tc.failures {
					return errBoom
				}
				return nil
			}, tc.opts...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantCalls, calls)
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, func(int) error { calls++; return nil })
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestBackoffCapped(t *testing.T) {
	cfg := newRetryConfig(WithInitialDelay(10*time.Millisecond), WithMaxDelay(35*time.Millisecond), WithMultiplier(2))
	require.Equal(t, 10*time.Millisecond, cfg.backoff(1))
	require.Equal(t, 20*time.Millisecond, cfg.backoff(2))
	require.Equal(t, 35*time.Millisecond, cfg.backoff(3))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
