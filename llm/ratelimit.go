package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps any Client with a client-side token-bucket rate
// limiter, so a single process-wide budget can be enforced across however
// many concurrent agent runs share the wrapped Client (spec §4.6 treats
// this as an adapter/transport concern, not part of the abstract
// interface).
type RateLimited struct {
	client  Client
	limiter *rate.Limiter
}

// NewRateLimited wraps client with a limiter allowing r requests per second
// with burst capacity b.
func NewRateLimited(client Client, r rate.Limit, b int) *RateLimited {
	return &RateLimited{client: client, limiter: rate.NewLimiter(r, b)}
}

// Chat waits for a token from the limiter, then delegates to the wrapped
// Client.
func (c *RateLimited) Chat(ctx context.Context, req Request) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, err
	}
	return c.client.Chat(ctx, req)
}

// Stream waits for a token from the limiter, then delegates to the wrapped
// Client.
func (c *RateLimited) Stream(ctx context.Context, req Request, sink ChunkSink) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, err
	}
	return c.client.Stream(ctx, req, sink)
}
