package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/retry"
	"github.com/tsharp/agent-runtime/rterrors"
)

func retryableErr() error {
	return rterrors.New(rterrors.KindModel, "test.op", "transient").WithRetryable(true)
}

func nonRetryableErr() error {
	return rterrors.New(rterrors.KindModel, "test.op", "permanent").WithRetryable(false)
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	calls := 0
	err := p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_NonRetryableRunsOnce(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, InitialDelay: time.Millisecond}
	calls := 0
	err := p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		return nonRetryableErr()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, errors.As(err, new(*rterrors.RetryExhaustedError)))
}

func TestExecute_RetryableExhaustsAfterMaxAttemptsPlusOne(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 1}
	calls := 0
	err := p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		return retryableErr()
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)

	var exhausted *rterrors.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, "test.op", exhausted.Op)
}

func TestExecute_SucceedsAfterTransientFailures(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, BackoffMultiplier: 1}
	calls := 0
	err := p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return retryableErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_RespectsMaxTotalDuration(t *testing.T) {
	p := retry.Policy{
		MaxAttempts:       100,
		InitialDelay:      10 * time.Millisecond,
		BackoffMultiplier: 1,
		MaxTotalDuration:  20 * time.Millisecond,
	}
	calls := 0
	start := time.Now()
	err := p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		return retryableErr()
	})
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.Less(t, calls, 100)
	assert.Less(t, elapsed, time.Second)
}

func TestExecute_ContextCancellationDuringBackoffStopsEarly(t *testing.T) {
	p := retry.Policy{MaxAttempts: 50, InitialDelay: 100 * time.Millisecond, BackoffMultiplier: 1}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Execute(ctx, "test.op", func(ctx context.Context) error {
		calls++
		return retryableErr()
	})
	require.Error(t, err)
	assert.Less(t, calls, 50)
}

func TestExecute_MaxDelayCapsBackoff(t *testing.T) {
	p := retry.Policy{
		MaxAttempts:       2,
		InitialDelay:      time.Hour,
		MaxDelay:          time.Millisecond,
		BackoffMultiplier: 2,
	}
	start := time.Now()
	calls := 0
	_ = p.Execute(context.Background(), "test.op", func(ctx context.Context) error {
		calls++
		return retryableErr()
	})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, calls)
}
