package patterns

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestBackoff_FirstAttemptHasNoDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), testPolicy().Backoff(1))
}

func TestBackoff_GrowsExponentiallyUpToCap(t *testing.T) {
	policy := testPolicy()

	assert.Equal(t, time.Millisecond, policy.Backoff(2))
	assert.Equal(t, 2*time.Millisecond, policy.Backoff(3))
	assert.Equal(t, 4*time.Millisecond, policy.Backoff(4))
	assert.Equal(t, policy.MaxBackoff, policy.Backoff(5))
	assert.Equal(t, policy.MaxBackoff, policy.Backoff(50))
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", testPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionWrapsLastError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), "doomed", testPolicy(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, testPolicy().MaxAttempts, calls)
}

func TestRetry_StopsImmediatelyOnPermanentError(t *testing.T) {
	rejected := fmt.Errorf("%w: order_id is required", ErrPermanent)
	calls := 0
	err := Retry(context.Background(), "rejected", testPolicy(), func(ctx context.Context) error {
		calls++
		return rejected
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls, "permanent failures must not be retried")
}

func TestRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "cancelled", testPolicy(), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_AttemptTimeoutBoundsEachCall(t *testing.T) {
	policy := testPolicy()
	policy.AttemptTimeout = 10 * time.Millisecond
	policy.MaxAttempts = 2

	err := Retry(context.Background(), "slow", policy, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
