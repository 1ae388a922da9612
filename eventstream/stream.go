// Package eventstream implements the append-only, offset-addressed,
// broadcast-plus-replay event log every CORE subsystem publishes to (spec
// §4.1). History is interior-mutable and shared by the Runtime and all
// producers; offset assignment is serialised so offsets are strictly
// increasing with no gaps, while subscribe/from_offset may run concurrently
// with append (spec §5 "Concurrency & Resource Model").
package eventstream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/telemetry"
)

// DefaultSubscriberCapacity is the default buffer size for a broadcast
// receiver channel. A subscriber that falls this far behind the publisher
// drops its oldest undelivered events and must recover via FromOffset.
const DefaultSubscriberCapacity = 256

// Receiver is a live, best-effort-ordered feed of events obtained from
// Subscribe. A lagging receiver whose channel fills drops the oldest
// undelivered event rather than blocking the publisher (spec §5).
type Receiver struct {
	ch     chan Event
	stream *Stream
	closed chan struct{}
	once   sync.Once
}

// Events returns the channel of delivered events. The channel is never
// closed: Close only unregisters the Receiver, after which no further
// events are delivered to it.
func (r *Receiver) Events() <-chan Event {
	return r.ch
}

// Close unregisters the receiver. Idempotent.
func (r *Receiver) Close() {
	r.once.Do(func() {
		r.stream.unsubscribe(r)
		close(r.closed)
	})
}

// Stream is the concrete, in-memory Event Stream implementation.
type Stream struct {
	mu       sync.RWMutex
	history  []Event
	nextOff  ids.Offset
	subs     map[*Receiver]struct{}
	telem    telemetry.Bundle
	name     string
}

// New constructs an empty Event Stream. telem may be a zero-value Bundle;
// missing fields resolve to noop implementations.
func New(name string, telem telemetry.Bundle) *Stream {
	return &Stream{
		subs:  make(map[*Receiver]struct{}),
		telem: telem.Resolve(),
		name:  name,
	}
}

// Append assigns the next offset atomically, appends the event to history
// and publishes it to every live subscriber without blocking on their
// consumption. Component-id format is validated per scope; a violation
// fails the append and no offset is consumed (spec §4.1).
func (s *Stream) Append(_ context.Context, scope Scope, typ Type, componentID string, status Status, workflowID ids.WorkflowID, parentWorkflowID ids.WorkflowID, message string, data any) (ids.Offset, error) {
	if err := validComponentID(scope, componentID); err != nil {
		return 0, rterrors.Wrap(rterrors.KindWorkflow, "eventstream.append", err, err.Error())
	}
	raw, err := marshalData(data)
	if err != nil {
		return 0, rterrors.Wrap(rterrors.KindWorkflow, "eventstream.append", err, "failed to marshal event data")
	}

	evt := Event{
		ID:               ids.NewEventID(),
		TimestampUnixMS:  time.Now().UnixMilli(),
		Scope:            scope,
		Type:             typ,
		ComponentID:      componentID,
		Status:           status,
		WorkflowID:       workflowID,
		ParentWorkflowID: parentWorkflowID,
		Message:          message,
		Data:             raw,
	}

	s.mu.Lock()
	evt.Offset = s.nextOff
	s.nextOff++
	s.history = append(s.history, evt)
	// Snapshot subscriber channels while still holding the lock so that a
	// concurrent Subscribe either sees this event via the snapshot or, if
	// it registered first, directly via fan-out below -- either way no
	// publish is silently missed by a subscriber active before Append began.
	recvs := make([]*Receiver, 0, len(s.subs))
	for r := range s.subs {
		recvs = append(recvs, r)
	}
	s.mu.Unlock()

	for _, r := range recvs {
		select {
		case r.ch <- evt:
		default:
			// Lagging subscriber: drop the oldest undelivered event to make
			// room rather than block the publisher.
			select {
			case <-r.ch:
			default:
			}
			select {
			case r.ch <- evt:
			default:
			}
		}
	}

	s.telem.Logger.Debug(context.Background(), "event appended",
		"component", "eventstream",
		"stream", s.name,
		"scope", scope,
		"type", typ,
		"component_id", componentID,
		"offset", evt.Offset,
	)
	s.telem.Metrics.IncCounter("eventstream.appended", 1, "scope", string(scope), "type", string(typ))

	return evt.Offset, nil
}

// Subscribe returns a bounded broadcast Receiver. Its channel capacity is
// DefaultSubscriberCapacity; slow receivers that lag past capacity drop the
// oldest undelivered events and can recover by calling FromOffset.
func (s *Stream) Subscribe() *Receiver {
	r := &Receiver{
		ch:     make(chan Event, DefaultSubscriberCapacity),
		stream: s,
		closed: make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[r] = struct{}{}
	s.mu.Unlock()
	return r
}

func (s *Stream) unsubscribe(r *Receiver) {
	s.mu.Lock()
	delete(s.subs, r)
	s.mu.Unlock()
}

// FromOffset returns a stable snapshot of every event with Offset >= from,
// captured at call time. May be empty. Use together with Subscribe to
// recover from a gap in live delivery (spec §4.1, §8 property 2).
func (s *Stream) FromOffset(from ids.Offset) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// history[i].Offset == i always holds since offsets are assigned
	// sequentially starting at 0 with no gaps.
	if int(from) >= len(s.history) {
		return nil
	}
	out := make([]Event, len(s.history)-int(from))
	copy(out, s.history[from:])
	return out
}

// All returns every event recorded so far.
func (s *Stream) All() []Event {
	return s.FromOffset(0)
}

// Len returns the number of events recorded so far.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// CurrentOffset returns the offset that will be assigned to the next
// appended event.
func (s *Stream) CurrentOffset() ids.Offset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextOff
}

func marshalData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(data)
}
