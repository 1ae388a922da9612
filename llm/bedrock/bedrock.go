// Package bedrock adapts llm.Client to AWS Bedrock's Converse API via
// github.com/aws/aws-sdk-go-v2/service/bedrockruntime — a third concrete
// Model Client adapter (spec §4.6). smithy-go's error types classify
// provider failures into the §4.6 taxonomy.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/tool"
)

// Client adapts a *bedrockruntime.Client to llm.Client.
type Client struct {
	inner   *bedrockruntime.Client
	modelID string
}

// New constructs a Client for modelID (a Bedrock model identifier, e.g.
// "anthropic.claude-3-sonnet-20240229-v1:0") over an existing AWS client.
func New(inner *bedrockruntime.Client, modelID string) *Client {
	return &Client{inner: inner, modelID: modelID}
}

// Chat performs a synchronous completion over the Converse API.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	input := c.toInput(req)
	resp, err := c.inner.Converse(ctx, input)
	if err != nil {
		return llm.Response{}, classifyError("bedrock.chat", err)
	}
	return fromOutput(resp)
}

// Stream streams content fragments to sink and returns the assembled final
// Response, using ConverseStream.
func (c *Client) Stream(ctx context.Context, req llm.Request, sink llm.ChunkSink) (llm.Response, error) {
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:    aws.String(c.modelID),
		Messages:   toMessages(req.Messages),
		System:     toSystem(req.Messages),
		ToolConfig: toToolConfig(req.Tools),
	}
	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil {
		input.InferenceConfig = toInferenceConfig(req)
	}

	resp, err := c.inner.ConverseStream(ctx, input)
	if err != nil {
		return llm.Response{}, classifyError("bedrock.chat_stream", err)
	}

	acc := llm.NewAccumulator(c.modelID)
	stream := resp.GetStream()
	defer stream.Close()

	for event := range stream.Events() {
		switch e := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			switch delta := e.Value.Delta.(type) {
			case *types.ContentBlockDeltaMemberText:
				acc.AddContent(delta.Value)
				if sink != nil {
					sink(ctx, llm.Chunk{ContentDelta: delta.Value})
				}
			case *types.ContentBlockDeltaMemberToolUse:
				idx := int(e.Value.ContentBlockIndex)
				frag := aws.ToString(delta.Value.Input)
				acc.AddToolCallFragment(idx, "", "", frag)
				if sink != nil {
					sink(ctx, llm.Chunk{ToolCallIndex: &idx, ToolCallArgsDelta: frag})
				}
			}
		case *types.ConverseStreamOutputMemberContentBlockStart:
			if start, ok := e.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
				idx := int(e.Value.ContentBlockIndex)
				acc.AddToolCallFragment(idx, aws.ToString(start.Value.ToolUseId), aws.ToString(start.Value.Name), "")
				if sink != nil {
					sink(ctx, llm.Chunk{
						ToolCallIndex:     &idx,
						ToolCallIDDelta:   aws.ToString(start.Value.ToolUseId),
						ToolCallNameDelta: aws.ToString(start.Value.Name),
					})
				}
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			acc.SetFinishReason(string(e.Value.StopReason))
		case *types.ConverseStreamOutputMemberMetadata:
			if e.Value.Usage != nil {
				acc.SetUsage(llm.Usage{
					PromptTokens:     int(aws.ToInt32(e.Value.Usage.InputTokens)),
					CompletionTokens: int(aws.ToInt32(e.Value.Usage.OutputTokens)),
					TotalTokens:      int(aws.ToInt32(e.Value.Usage.TotalTokens)),
				})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Response{}, classifyError("bedrock.chat_stream", err)
	}
	return acc.Finish(), nil
}

func (c *Client) toInput(req llm.Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId:    aws.String(c.modelID),
		Messages:   toMessages(req.Messages),
		System:     toSystem(req.Messages),
		ToolConfig: toToolConfig(req.Tools),
	}
	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil {
		input.InferenceConfig = toInferenceConfig(req)
	}
	return input
}

func toInferenceConfig(req llm.Request) *types.InferenceConfiguration {
	cfg := &types.InferenceConfiguration{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		cfg.TopP = &p
	}
	if req.MaxTokens != nil {
		m := int32(*req.MaxTokens)
		cfg.MaxTokens = &m
	}
	return cfg
}

func toSystem(history []chatmsg.ChatMessage) []types.SystemContentBlock {
	var out []types.SystemContentBlock
	for _, msg := range history {
		if msg.Role == chatmsg.RoleSystem {
			out = append(out, &types.SystemContentBlockMemberText{Value: msg.Content})
		}
	}
	return out
}

func toMessages(history []chatmsg.ChatMessage) []types.Message {
	var out []types.Message
	for _, msg := range history {
		switch msg.Role {
		case chatmsg.RoleSystem:
			continue
		case chatmsg.RoleUser:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})
		case chatmsg.RoleAssistant:
			blocks := []types.ContentBlock{}
			if msg.Content != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				blocks = append(blocks, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Function.Name),
					Input:     document.NewLazyDocument(args),
				}})
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: blocks})
		case chatmsg.RoleTool:
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
					ToolUseId: aws.String(msg.ToolCallID),
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: msg.Content}},
				}}},
			})
		}
	}
	return out
}

func toToolConfig(tools []tool.FunctionDescriptor) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	cfg := &types.ToolConfiguration{}
	for _, t := range tools {
		var schemaDoc map[string]any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &schemaDoc)
		}
		cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{Value: types.ToolSpecification{
			Name:        aws.String(t.Name),
			Description: aws.String(t.Description),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schemaDoc)},
		}})
	}
	return cfg
}

func fromOutput(resp *bedrockruntime.ConverseOutput) (llm.Response, error) {
	out := llm.Response{}
	msgOutput, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if ok {
		for _, block := range msgOutput.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				out.Content += b.Value
			case *types.ContentBlockMemberToolUse:
				var decoded map[string]any
				if b.Value.Input != nil {
					_ = b.Value.Input.UnmarshalSmithyDocument(&decoded)
				}
				args, _ := json.Marshal(decoded)
				out.ToolCalls = append(out.ToolCalls, chatmsg.ToolCall{
					ID:   aws.ToString(b.Value.ToolUseId),
					Type: "function",
					Function: chatmsg.ToolCallFunction{
						Name:      aws.ToString(b.Value.Name),
						Arguments: string(args),
					},
				})
			}
		}
	}
	out.FinishReason = string(resp.StopReason)
	if resp.Usage != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(aws.ToInt32(resp.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(resp.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(resp.Usage.TotalTokens)),
		}
	}
	return out, nil
}

// classifyError maps a smithy-go/AWS SDK error into the §4.6 failure
// taxonomy.
func classifyError(op string, err error) error {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		rtErr := rterrors.Wrap(rterrors.KindModel, op, err, err.Error())
		switch respErr.HTTPStatusCode() {
		case 401, 403:
			return rtErr.WithModelReason(rterrors.ReasonAuthentication).WithRetryable(false)
		case 404:
			return rtErr.WithModelReason(rterrors.ReasonModelNotFound).WithRetryable(false)
		case 429:
			return rtErr.WithModelReason(rterrors.ReasonRateLimit).WithRetryable(true)
		case 400:
			return rtErr.WithModelReason(rterrors.ReasonInvalidRequest).WithRetryable(false)
		default:
			if respErr.HTTPStatusCode() >= 500 {
				return rtErr.WithModelReason(rterrors.ReasonServerError).WithRetryable(true)
			}
		}
		return rtErr.WithModelReason(rterrors.ReasonInvalidRequest).WithRetryable(false)
	}
	return rterrors.Wrap(rterrors.KindModel, op, err, "bedrock request failed").
		WithModelReason(rterrors.ReasonNetwork).WithRetryable(true)
}
