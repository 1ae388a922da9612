// Package mock provides a scripted llm.Client for tests and demos: a fixed
// sequence of Responses returned one per call, with no network traffic.
package mock

import (
	"context"
	"sync"

	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/rterrors"
)

// Client replays a fixed script of Responses, one per Chat/Stream call, in
// order. Calling it more times than the script is long returns a
// model-kind *rterrors.Error naming the overrunning call's index.
type Client struct {
	mu       sync.Mutex
	script   []llm.Response
	errors   map[int]error
	next     int
	requests []llm.Request
}

// NewClient constructs a Client that returns script[i] on its i'th call.
func NewClient(script ...llm.Response) *Client {
	return &Client{script: script, errors: make(map[int]error)}
}

// WithError makes the call at the given zero-based index return err. That
// call still advances the script position, so script[index] is never
// returned.
func (c *Client) WithError(index int, err error) *Client {
	c.errors[index] = err
	return c
}

// Requests returns every Request the mock has received so far, in order.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *Client) take(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.next
	c.next++
	c.requests = append(c.requests, req)

	if err, ok := c.errors[idx]; ok {
		return llm.Response{}, err
	}
	if idx >= len(c.script) {
		return llm.Response{}, rterrors.Newf(rterrors.KindModel, "mock.chat", "mock script exhausted at call %d", idx)
	}
	return c.script[idx], nil
}

// Chat returns the next scripted Response or error.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	return c.take(ctx, req)
}

// Stream returns the next scripted Response or error, synthesising a single
// chunk carrying the whole content so sinks still observe at least one
// fragment.
func (c *Client) Stream(ctx context.Context, req llm.Request, sink llm.ChunkSink) (llm.Response, error) {
	resp, err := c.take(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	if sink != nil && resp.Content != "" {
		sink(ctx, llm.Chunk{ContentDelta: resp.Content})
	}
	return resp, nil
}
