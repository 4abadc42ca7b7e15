package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrPermanent marks failures that retrying can never fix, such as a
// validation rejection. Retry stops immediately on errors wrapping it.
var ErrPermanent = errors.New("permanent failure")

// RetryPolicy controls bounded exponential backoff for activity calls
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is the policy applied to workflow activity invocations
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		AttemptTimeout: DefaultTimeout,
	}
}

// Backoff returns the delay before the given attempt (1-based). The first
// attempt has no delay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	backoff := p.InitialBackoff
	for i := 2; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * p.BackoffFactor)
		if backoff >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if backoff > p.MaxBackoff {
		return p.MaxBackoff
	}
	return backoff
}

// Retry runs fn under the policy, backing off between attempts. Each attempt
// gets its own timeout context. Returns the last error once attempts are
// exhausted or the parent context is cancelled.
func Retry(ctx context.Context, name string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if delay := policy.Backoff(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", name, ctx.Err())
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}

		lastErr = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return fmt.Errorf("%s: %w", name, lastErr)
		}

		log.WithFields(log.Fields{
			"operation": name,
			"attempt":   attempt,
			"max":       policy.MaxAttempts,
		}).Warn("Attempt failed: ", lastErr)

		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
	}

	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", name, policy.MaxAttempts, lastErr)
}
