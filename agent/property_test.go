package agent_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tsharp/agent-runtime/agent"
	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/llm/mock"
	"github.com/tsharp/agent-runtime/telemetry"
	"github.com/tsharp/agent-runtime/tool"
)

// TestProperty_LoopDetectorSuppressesAllButFirst checks spec §8 property 5:
// k identical repeated tool calls within one run reach the registry exactly
// once; the other k-1 are suppressed.
func TestProperty_LoopDetectorSuppressesAllButFirst(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("exactly one of k identical calls reaches the registry", prop.ForAll(
		func(k int) bool {
			registry := tool.NewRegistry()
			calls := 0
			_ = registry.Register(tool.NewNativeTool(
				"repeat_me", "echoes", echoToolSchema(),
				func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
					calls++
					return tool.Result{Status: tool.StatusSuccess, Output: json.RawMessage(`"ok"`)}, nil
				},
			))

			repeated := chatmsg.ToolCall{
				ID:       "dup",
				Type:     "function",
				Function: chatmsg.ToolCallFunction{Name: "repeat_me", Arguments: `{"query":"same"}`},
			}

			script := make([]llm.Response, 0, k+1)
			for i := 0; i < k; i++ {
				script = append(script, llm.Response{ToolCalls: []chatmsg.ToolCall{repeated}})
			}
			script = append(script, llm.Response{Content: "stop"})
			model := mock.NewClient(script...)

			a := agent.New(agent.Config{
				Name:              "dup-runner",
				SystemPrompt:      "helpful",
				ToolRegistry:      registry,
				MaxToolIterations: k + 1,
				Model:             model,
			}, telemetry.Bundle{})

			_, err := a.Execute(context.Background(), agent.Input{Data: "go"})
			return err == nil && calls == 1
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

// TestProperty_IterationBound checks spec §8 property 6: a model that never
// stops issuing tool calls never causes more than max_tool_iterations model
// calls; Execute fails instead of looping forever.
func TestProperty_IterationBound(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("never exceeds max_tool_iterations model calls", prop.ForAll(
		func(maxIter int) bool {
			registry := tool.NewRegistry()
			_ = registry.Register(tool.NewNativeTool(
				"again", "always callable", echoToolSchema(),
				func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
					return tool.Result{Status: tool.StatusSuccess, Output: json.RawMessage(`"ok"`)}, nil
				},
			))

			// Distinct arguments per call so the loop detector never
			// suppresses a call, isolating the iteration-cap behaviour.
			script := make([]llm.Response, 0, maxIter+3)
			for i := 0; i < maxIter+3; i++ {
				script = append(script, llm.Response{
					ToolCalls: []chatmsg.ToolCall{{
						ID:       "call",
						Type:     "function",
						Function: chatmsg.ToolCallFunction{Name: "again", Arguments: `{"query":"` + string(rune('a'+i%26)) + string(rune('A'+i/26)) + `"}`},
					}},
				})
			}
			model := mock.NewClient(script...)

			a := agent.New(agent.Config{
				Name:              "unbounded",
				SystemPrompt:      "helpful",
				ToolRegistry:      registry,
				MaxToolIterations: maxIter,
				Model:             model,
			}, telemetry.Bundle{})

			_, err := a.Execute(context.Background(), agent.Input{Data: "go"})
			if err == nil {
				return false
			}
			calls := model.Requests()
			return len(calls) == maxIter
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
