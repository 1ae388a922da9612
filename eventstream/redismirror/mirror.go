// Package redismirror optionally mirrors an in-process eventstream.Stream
// onto a Redis Stream, so dashboards and late subscribers outside the
// process can observe CORE lifecycle events without holding a live
// subscription to the in-memory Stream (spec §4.1 is silent on cross-process
// fan-out; this is observability plumbing layered on top, not a substitute
// for the in-process Stream's own offset/replay semantics).
package redismirror

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/telemetry"
)

// Mirror subscribes to an eventstream.Stream and republishes every event to
// a Redis Stream via XADD, running its own forwarding loop in a background
// goroutine started by Run.
type Mirror struct {
	redis     *redis.Client
	streamKey string
	telem     telemetry.Bundle

	recv *eventstream.Receiver
	done chan struct{}
}

// New constructs a Mirror that will forward events from the Stream later
// passed to Run onto streamKey in redis. telem may be a zero-value Bundle.
func New(redisClient *redis.Client, streamKey string, telem telemetry.Bundle) *Mirror {
	return &Mirror{redis: redisClient, streamKey: streamKey, telem: telem.Resolve()}
}

// Run subscribes to src and forwards events until ctx is canceled or Close
// is called, whichever comes first. Run blocks; call it from its own
// goroutine.
func (m *Mirror) Run(ctx context.Context, src *eventstream.Stream) error {
	m.recv = src.Subscribe()
	m.done = make(chan struct{})
	defer m.recv.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case evt, ok := <-m.recv.Events():
			if !ok {
				return nil
			}
			if err := m.forward(ctx, evt); err != nil {
				m.telem.Logger.Warn(ctx, "failed to mirror event to redis",
					"component", "redismirror",
					"stream", m.streamKey,
					"error", err)
			}
		}
	}
}

// Close stops Run's forwarding loop. It is not idempotent: a second Close
// panics on closing an already-closed channel. Close before Run has started
// does nothing, since Run creates the channel Close closes.
func (m *Mirror) Close() {
	if m.done != nil {
		close(m.done)
	}
}

func (m *Mirror) forward(ctx context.Context, evt eventstream.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return rterrors.Wrap(rterrors.KindWorkflow, "redismirror.forward", err, "failed to marshal event for redis mirror")
	}
	cmd := m.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: m.streamKey,
		Values: map[string]any{
			"offset":       int64(evt.Offset),
			"scope":        string(evt.Scope),
			"type":         string(evt.Type),
			"component_id": evt.ComponentID,
			"workflow_id":  string(evt.WorkflowID),
			"payload":      string(payload),
		},
	})
	if err := cmd.Err(); err != nil {
		return rterrors.Wrap(rterrors.KindWorkflow, "redismirror.forward", err, "XADD failed")
	}
	return nil
}
