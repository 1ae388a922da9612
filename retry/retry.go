// Package retry implements RetryPolicy (spec §4.10): exponential backoff
// with jitter around a retryable operation, bounded by a maximum attempt
// count and, optionally, a maximum total duration.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tsharp/agent-runtime/rterrors"
)

// Policy is a RetryPolicy: {max_attempts, initial_delay, max_delay,
// backoff_multiplier, jitter_factor, max_total_duration?} (spec §4.10).
type Policy struct {
	// MaxAttempts is the number of retries after the first attempt; the
	// operation runs at most MaxAttempts+1 times total.
	MaxAttempts int
	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the computed backoff before jitter is applied.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential growth factor per attempt.
	BackoffMultiplier float64
	// JitterFactor lengthens each wait by up to JitterFactor*delay, drawn
	// uniformly; jitter never shortens a wait.
	JitterFactor float64
	// MaxTotalDuration, if non-zero, aborts retrying once elapsed wall
	// time since the first attempt exceeds it.
	MaxTotalDuration time.Duration
}

// Operation is the retried unit of work.
type Operation func(ctx context.Context) error

// Execute calls operation; on a retryable error it waits
// min(MaxDelay, InitialDelay*BackoffMultiplier^attempt)*(1+uniform(0,JitterFactor))
// before the next attempt, up to MaxAttempts+1 total invocations, aborting
// early if MaxTotalDuration elapses. A non-retryable error surfaces
// immediately. When attempts are exhausted, returns a
// *rterrors.RetryExhaustedError carrying op, the attempt count and the last
// underlying error (spec §4.10).
func (p Policy) Execute(ctx context.Context, op string, operation Operation) error {
	start := time.Now()
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		attempts++
		if lastErr == nil {
			return nil
		}
		if !rterrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.MaxTotalDuration > 0 && time.Since(start) >= p.MaxTotalDuration {
			break
		}

		delay := p.backoffFor(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &rterrors.RetryExhaustedError{
		Op:       op,
		Attempts: attempts,
		LastErr:  lastErr,
	}
}

// backoffFor computes the jittered backoff delay before the attempt'th
// retry (0-indexed: the delay before the second invocation is
// backoffFor(0)).
func (p Policy) backoffFor(attempt int) time.Duration {
	base := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	if p.JitterFactor > 0 {
		base *= 1 + p.JitterFactor*rand.Float64() //nolint:gosec // jitter does not need cryptographic randomness
	}
	return time.Duration(base)
}
