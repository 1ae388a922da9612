package eventstream

import (
	"context"

	"github.com/tsharp/agent-runtime/ids"
)

// Cursor formalises the reconnect pattern shown in the original
// reconnection/multi-subscriber demos: remember the last delivered offset,
// replay everything after it, then hand off to a live Receiver. It hides
// the replay/live handoff so callers do not have to reason about the race
// between FromOffset and Subscribe themselves.
type Cursor struct {
	stream *Stream
	last   ids.Offset
	recv   *Receiver
	buf    []Event
}

// NewCursor creates a Cursor starting at the given offset (inclusive). Pass
// 0 to replay from the beginning of history.
func NewCursor(stream *Stream, from ids.Offset) *Cursor {
	return &Cursor{stream: stream, last: from}
}

// Next blocks until the next event at or after the cursor's position is
// available, or ctx is done. It first drains any replayed backlog, then
// subscribes for live delivery, re-requesting a replay if live delivery
// ever reveals a gap (i.e. the first live event's offset is beyond what the
// cursor has already seen).
func (c *Cursor) Next(ctx context.Context) (Event, error) {
	for {
		if len(c.buf) > 0 {
			evt := c.buf[0]
			c.buf = c.buf[1:]
			c.last = evt.Offset + 1
			return evt, nil
		}
		if c.recv == nil {
			c.buf = c.stream.FromOffset(c.last)
			if len(c.buf) > 0 {
				continue
			}
			c.recv = c.stream.Subscribe()
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case evt, ok := <-c.recv.Events():
			if !ok {
				c.recv = nil
				continue
			}
			if evt.Offset < c.last {
				continue
			}
			if evt.Offset > c.last {
				// A gap opened up while we were between replay and
				// subscribe; replay the missing range before resuming
				// live delivery.
				missed := c.stream.FromOffset(c.last)
				c.buf = append(c.buf, missed...)
				if len(c.buf) == 0 || c.buf[len(c.buf)-1].Offset < evt.Offset {
					c.buf = append(c.buf, evt)
				}
				continue
			}
			c.last = evt.Offset + 1
			return evt, nil
		}
	}
}

// Close releases the cursor's live subscription, if any.
func (c *Cursor) Close() {
	if c.recv != nil {
		c.recv.Close()
		c.recv = nil
	}
}
