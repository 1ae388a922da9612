// Package anthropic adapts llm.Client to the Anthropic Messages API via
// github.com/anthropics/anthropic-sdk-go — a second concrete Model Client
// adapter alongside llm/openai (spec §4.6 is provider-agnostic; this is one
// conforming implementation).
package anthropic

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/rterrors"
)

// Client adapts an anthropic.Client to llm.Client.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New constructs a Client for model, talking to apiKey. defaultMaxTokens is
// used when a Request does not specify MaxTokens (the Messages API
// requires one).
func New(model, apiKey string, defaultMaxTokens int64, opts ...option.RequestOption) *Client {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{inner: anthropic.NewClient(options...), model: anthropic.Model(model), maxTokens: defaultMaxTokens}
}

// Chat performs a synchronous completion over the Messages API.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := c.toParams(req)
	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, classifyError("anthropic.chat", err)
	}
	return fromMessage(resp), nil
}

// Stream streams content fragments to sink, accumulating tool-call deltas
// by index, and returns the assembled final Response.
func (c *Client) Stream(ctx context.Context, req llm.Request, sink llm.ChunkSink) (llm.Response, error) {
	params := c.toParams(req)
	stream := c.inner.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	acc := llm.NewAccumulator(string(c.model))
	var message anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return llm.Response{}, classifyError("anthropic.chat_stream", err)
		}

		switch delta := event.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if delta.Text != "" {
				acc.AddContent(delta.Text)
				if sink != nil {
					sink(ctx, llm.Chunk{ContentDelta: delta.Text})
				}
			}
		case anthropic.InputJSONDelta:
			idx := int(event.Index)
			acc.AddToolCallFragment(idx, "", "", delta.PartialJSON)
			if sink != nil {
				sink(ctx, llm.Chunk{ToolCallIndex: &idx, ToolCallArgsDelta: delta.PartialJSON})
			}
		}

		if block, ok := event.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			idx := int(event.Index)
			acc.AddToolCallFragment(idx, block.ID, block.Name, "")
			if sink != nil {
				sink(ctx, llm.Chunk{ToolCallIndex: &idx, ToolCallIDDelta: block.ID, ToolCallNameDelta: block.Name})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Response{}, classifyError("anthropic.chat_stream", err)
	}

	final := acc.Finish()
	final.FinishReason = string(message.StopReason)
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		final.Usage = &llm.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}
	return final, nil
}

func (c *Client) toParams(req llm.Request) anthropic.MessageNewParams {
	maxTokens := c.maxTokens
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}

	for _, msg := range req.Messages {
		if msg.Role == chatmsg.RoleSystem {
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
			continue
		}
		params.Messages = append(params.Messages, toMessageParam(msg))
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: rawSchemaToInputSchema(t.Parameters),
			},
		})
	}
	return params
}

func toMessageParam(msg chatmsg.ChatMessage) anthropic.MessageParam {
	switch msg.Role {
	case chatmsg.RoleAssistant:
		blocks := []anthropic.ContentBlockParamUnion{}
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			var input any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
			blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
		}
		return anthropic.NewAssistantMessage(blocks...)
	case chatmsg.RoleTool:
		return anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
	}
}

func rawSchemaToInputSchema(raw json.RawMessage) anthropic.ToolInputSchemaParam {
	var schema anthropic.ToolInputSchemaParam
	if len(raw) == 0 {
		return schema
	}
	_ = json.Unmarshal(raw, &schema)
	return schema
}

func fromMessage(msg *anthropic.Message) llm.Response {
	out := llm.Response{Model: string(msg.Model), FinishReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(b.Input)
			out.ToolCalls = append(out.ToolCalls, chatmsg.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: chatmsg.ToolCallFunction{
					Name:      b.Name,
					Arguments: string(args),
				},
			})
		}
	}
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}
	return out
}

// classifyError maps an anthropic-sdk-go error into the §4.6 failure
// taxonomy.
func classifyError(op string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		rtErr := rterrors.Wrap(rterrors.KindModel, op, err, apiErr.Message)
		switch apiErr.StatusCode {
		case 401, 403:
			return rtErr.WithModelReason(rterrors.ReasonAuthentication).WithRetryable(false)
		case 404:
			return rtErr.WithModelReason(rterrors.ReasonModelNotFound).WithRetryable(false)
		case 429:
			return rtErr.WithModelReason(rterrors.ReasonRateLimit).WithRetryable(true)
		case 400:
			return rtErr.WithModelReason(rterrors.ReasonInvalidRequest).WithRetryable(false)
		default:
			if apiErr.StatusCode >= 500 {
				return rtErr.WithModelReason(rterrors.ReasonServerError).WithRetryable(true)
			}
		}
		return rtErr.WithModelReason(rterrors.ReasonInvalidRequest).WithRetryable(false)
	}
	return rterrors.Wrap(rterrors.KindModel, op, err, "anthropic request failed").
		WithModelReason(rterrors.ReasonNetwork).WithRetryable(true)
}
