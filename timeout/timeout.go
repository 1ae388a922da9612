// Package timeout implements TimeoutConfig (spec §4.10): wraps an
// operation with a deadline, surfacing a typed timeout error when it fires.
package timeout

import (
	"context"
	"time"

	"github.com/tsharp/agent-runtime/rterrors"
)

// Config is a TimeoutConfig {total?, first_response?}. Total bounds the
// whole operation. FirstResponse is carried as a value only: Execute does
// not read it, and nothing in this package bounds the wait for a first
// response. A zero Total means "no timeout, run to completion".
type Config struct {
	Total         time.Duration
	FirstResponse time.Duration
}

// Future is the unit of work Execute wraps: a function that respects ctx
// cancellation and returns once it completes or ctx is done.
type Future func(ctx context.Context) error

// Execute wraps fut with a deadline derived from Total. Exceeding Total
// yields a KindTimeout *rterrors.Error (built by rterrors.TimeoutError's
// AsRTError) whose Op is op and whose message carries the elapsed
// milliseconds.
// A zero Total runs fut to completion with no deadline.
func (c Config) Execute(ctx context.Context, op string, fut Future) error {
	if c.Total <= 0 {
		return fut(ctx)
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, c.Total)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- fut(deadlineCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-deadlineCtx.Done():
		// fut is expected to be cancel-safe and return promptly once it
		// observes deadlineCtx.Done(); its eventual result is discarded
		// into the buffered channel rather than awaited here, so a slow
		// or non-cancel-safe fut cannot make Execute itself block past
		// the deadline.
		elapsedMS := float64(time.Since(start).Microseconds()) / 1000.0
		return (&rterrors.TimeoutError{Op: op, ElapsedMS: elapsedMS}).AsRTError()
	}
}
