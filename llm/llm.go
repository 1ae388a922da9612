// Package llm defines the abstract Model Client (spec §4.6): the provider-
// agnostic surface the Agent execution loop drives to get completions,
// streamed or not, with tool-call support. Concrete adapters (llm/openai,
// llm/anthropic, llm/bedrock, llm/mock) implement Client against their own
// wire protocols.
package llm

import (
	"context"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/tool"
)

// Request carries everything a chat completion call needs: the message
// history, sampling parameters, and any tool schemas the model may call
// (spec §4.6).
type Request struct {
	Messages    []chatmsg.ChatMessage
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Tools       []tool.FunctionDescriptor
}

// Usage carries token accounting when the provider reports it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the assembled result of a chat completion, whether obtained
// synchronously via Chat or accumulated from a Stream.
type Response struct {
	Content      string
	Model        string
	Usage        *Usage
	FinishReason string
	ToolCalls    []chatmsg.ToolCall
}

// HasToolCalls reports whether r carries one or more tool calls (spec §9:
// an empty slice is treated the same as none).
func (r Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Chunk is one streamed fragment of a Response, delivered to a ChunkSink as
// it arrives during Stream.
type Chunk struct {
	ContentDelta string
	// ToolCallIndex, when non-nil, identifies which in-progress tool call
	// this chunk's ToolCall*Delta fields belong to; fragments must be accumulated
	// per index so the final Response presents each tool call as one
	// complete unit (spec §4.6).
	ToolCallIndex      *int
	ToolCallIDDelta    string
	ToolCallNameDelta  string
	ToolCallArgsDelta  string
	FinishReasonDelta  string
}

// ChunkSink receives streamed fragments as they arrive.
type ChunkSink func(ctx context.Context, chunk Chunk)

// Client is the abstract Model Client every concrete adapter implements.
type Client interface {
	// Chat performs a synchronous completion.
	Chat(ctx context.Context, req Request) (Response, error)
	// Stream streams content fragments to sink as they arrive and returns
	// the assembled final Response, including any tool calls.
	Stream(ctx context.Context, req Request, sink ChunkSink) (Response, error)
}
