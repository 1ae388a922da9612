package timeout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/timeout"
)

func TestExecute_NoTimeout_RunsToCompletion(t *testing.T) {
	c := timeout.Config{}
	err := c.Execute(context.Background(), "op", func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_CompletesBeforeDeadline(t *testing.T) {
	c := timeout.Config{Total: 50 * time.Millisecond}
	err := c.Execute(context.Background(), "op", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_ExceedsDeadline_ReturnsTimeoutError(t *testing.T) {
	c := timeout.Config{Total: 10 * time.Millisecond}
	err := c.Execute(context.Background(), "slow.op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, rterrors.KindTimeout, rterrors.KindOf(err))

	var rtErr *rterrors.Error
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "slow.op", rtErr.Op)
}

func TestExecute_PropagatesOperationError(t *testing.T) {
	c := timeout.Config{Total: 100 * time.Millisecond}
	boom := errors.New("boom")
	err := c.Execute(context.Background(), "op", func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}
