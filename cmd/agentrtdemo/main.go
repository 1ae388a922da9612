// Command agentrtdemo wires a single agent, a two-step workflow and an
// event-stream subscriber together end to end, printing the workflow's
// mermaid diagram and the events emitted along the way. It is a thin demo,
// not a deployable service — the CLI/config-loading surface is explicitly
// out of CORE scope.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tsharp/agent-runtime/agent"
	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/llm/mock"
	"github.com/tsharp/agent-runtime/step"
	"github.com/tsharp/agent-runtime/telemetry"
	"github.com/tsharp/agent-runtime/tool"
	"github.com/tsharp/agent-runtime/wfcontext"
	"github.com/tsharp/agent-runtime/workflow"
)

func main() {
	ctx := context.Background()
	telem := telemetry.Bundle{}.Resolve()

	registry := tool.NewRegistry()
	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []string{"query"},
	})
	_ = registry.Register(tool.NewNativeTool("search", "looks something up", schema, func(ctx context.Context, args map[string]any) (tool.Result, error) {
		out, _ := json.Marshal(map[string]any{"result": fmt.Sprintf("no hits for %v", args["query"])})
		return tool.Result{Output: out, Status: tool.StatusSuccess}, nil
	}))

	model := mock.NewClient(
		llm.Response{ToolCalls: []chatmsg.ToolCall{{ID: "call-1", Function: chatmsg.ToolCallFunction{Name: "search", Arguments: `{"query":"agent workflow runtime"}`}}}},
		llm.Response{Content: "Here's a summary of what I found."},
	)

	researcher := agent.New(agent.Config{
		Name:              "researcher",
		SystemPrompt:      "You are a careful research assistant.",
		ToolRegistry:      registry,
		MaxToolIterations: 5,
		Model:             model,
	}, telem)

	summariser := step.NewTransformStep("format", func(data any) (any, error) {
		text, _ := data.(string)
		return "FINAL: " + text, nil
	})

	events := eventstream.New("agentrtdemo", telem)
	recv := events.Subscribe()
	defer recv.Close()

	go func() {
		for evt := range recv.Events() {
			fmt.Printf("[event] scope=%s type=%s component=%s\n", evt.Scope, evt.Type, evt.ComponentID)
		}
	}()

	wf := workflow.New(
		ids.NewWorkflowID(),
		[]step.Step{step.NewAgentStep("research", researcher), summariser},
		"What is an agent workflow runtime?",
		wfcontext.New(ids.NewWorkflowID(), 8000, 0.75),
	)

	rt := workflow.NewRuntime(events, telem)
	run, err := rt.Execute(ctx, wf)
	if err != nil {
		fmt.Println("workflow failed:", err)
		return
	}

	fmt.Println("\nfinal output:", run.FinalOutput.Data)
	fmt.Println("\nmermaid diagram:")
	fmt.Println(wf.ToMermaid())
}
