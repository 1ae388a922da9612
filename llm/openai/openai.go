// Package openai adapts llm.Client to the OpenAI-compatible Chat
// Completions wire protocol (spec §6) via github.com/openai/openai-go.
package openai

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/rterrors"
)

// Client adapts an *openai.Client to llm.Client.
type Client struct {
	inner openai.Client
	model string
}

// New constructs a Client for model, talking to apiKey (and, for
// OpenAI-compatible gateways, an alternate baseURL via opts).
func New(model, apiKey string, opts ...option.RequestOption) *Client {
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{inner: openai.NewClient(options...), model: model}
}

// Chat performs a synchronous completion over the Chat Completions API.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	params := toParams(c.model, req)
	resp, err := c.inner.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, classifyError("openai.chat", err)
	}
	return fromCompletion(resp), nil
}

// Stream streams content fragments to sink, accumulating tool-call deltas
// by index, and returns the assembled final Response (spec §4.6).
func (c *Client) Stream(ctx context.Context, req llm.Request, sink llm.ChunkSink) (llm.Response, error) {
	params := toParams(c.model, req)
	stream := c.inner.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := llm.NewAccumulator(c.model)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			acc.AddContent(delta.Content)
			if sink != nil {
				sink(ctx, llm.Chunk{ContentDelta: delta.Content})
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := int(tc.Index)
			acc.AddToolCallFragment(idx, tc.ID, tc.Function.Name, tc.Function.Arguments)
			if sink != nil {
				sink(ctx, llm.Chunk{
					ToolCallIndex:     &idx,
					ToolCallIDDelta:   tc.ID,
					ToolCallNameDelta: tc.Function.Name,
					ToolCallArgsDelta: tc.Function.Arguments,
				})
			}
		}
		if choice.FinishReason != "" {
			acc.SetFinishReason(choice.FinishReason)
		}
		if chunk.Usage.TotalTokens > 0 {
			acc.SetUsage(llm.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			})
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Response{}, classifyError("openai.chat_stream", err)
	}
	return acc.Finish(), nil
}

func toParams(model string, req llm.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  rawSchemaToParameters(t.Parameters),
			},
		})
	}
	return params
}

func rawSchemaToParameters(raw json.RawMessage) openai.FunctionParameters {
	var params openai.FunctionParameters
	if len(raw) == 0 {
		return params
	}
	_ = json.Unmarshal(raw, &params)
	return params
}

func toMessages(history []chatmsg.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chatmsg.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chatmsg.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case chatmsg.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				},
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case chatmsg.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func fromCompletion(resp *openai.ChatCompletion) llm.Response {
	out := llm.Response{Model: resp.Model}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.FinishReason = choice.FinishReason
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, chatmsg.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: chatmsg.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return out
}

// classifyError maps an openai-go error into the §4.6 failure taxonomy.
func classifyError(op string, err error) error {
	var apiErr *openai.Error
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
	return rterrors.Wrap(rterrors.KindModel, op, err, "openai request failed").
		WithModelReason(rterrors.ReasonNetwork).WithRetryable(true)
}
