package agent_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/agent"
	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/llm/mock"
	"github.com/tsharp/agent-runtime/telemetry"
	"github.com/tsharp/agent-runtime/tool"
)

func countEvents(events []eventstream.Event, scope eventstream.Scope, typ eventstream.Type) int {
	n := 0
	for _, e := range events {
		if e.Scope == scope && e.Type == typ {
			n++
		}
	}
	return n
}

func echoToolSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`)
}

// TestExecute_NoTools covers E1: a model turn with no tool calls produces
// the final text and a [system, user, assistant] history, with exactly one
// agent.started/completed pair and one llm_request.started/completed pair.
func TestExecute_NoTools(t *testing.T) {
	model := mock.NewClient(llm.Response{Content: "Hello"})
	stream := eventstream.New("test", telemetry.Bundle{})

	a := agent.New(agent.Config{
		Name:         "greeter",
		SystemPrompt: "You are helpful.",
		Model:        model,
	}, telemetry.Bundle{})

	out, err := a.Execute(context.Background(), agent.Input{Data: "Hi"},
		agent.WithEventStream(stream))
	require.NoError(t, err)
	assert.Equal(t, "Hello", out.Text)

	require.Len(t, out.History, 3)
	assert.Equal(t, chatmsg.RoleSystem, out.History[0].Role)
	assert.Equal(t, chatmsg.RoleUser, out.History[1].Role)
	assert.Equal(t, "Hi", out.History[1].Content)
	assert.Equal(t, chatmsg.RoleAssistant, out.History[2].Role)
	assert.Equal(t, "Hello", out.History[2].Content)

	events := stream.All()
	assert.Equal(t, 1, countEvents(events, eventstream.ScopeAgent, eventstream.TypeStarted))
	assert.Equal(t, 1, countEvents(events, eventstream.ScopeAgent, eventstream.TypeCompleted))
	assert.Equal(t, 1, countEvents(events, eventstream.ScopeLLMRequest, eventstream.TypeStarted))
	assert.Equal(t, 1, countEvents(events, eventstream.ScopeLLMRequest, eventstream.TypeCompleted))
}

// TestExecute_SingleToolCall covers E2: one tool call round-trips through
// the registry and the model's second turn finalises.
func TestExecute_SingleToolCall(t *testing.T) {
	registry := tool.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(tool.NewNativeTool(
		"search", "looks something up", echoToolSchema(),
		func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
			calls++
			return tool.Result{Status: tool.StatusSuccess, Output: json.RawMessage(`"found it"`)}, nil
		},
	)))

	model := mock.NewClient(
		llm.Response{
			Content: "",
			ToolCalls: []chatmsg.ToolCall{{
				ID:   "call-1",
				Type: "function",
				Function: chatmsg.ToolCallFunction{
					Name:      "search",
					Arguments: `{"query":"widgets"}`,
				},
			}},
		},
		llm.Response{Content: "The search turned up: found it"},
	)

	a := agent.New(agent.Config{
		Name:         "researcher",
		SystemPrompt: "You are helpful.",
		ToolRegistry: registry,
		Model:        model,
	}, telemetry.Bundle{})

	out, err := a.Execute(context.Background(), agent.Input{Data: "look up widgets"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "The search turned up: found it", out.Text)

	// [system, user, assistant(tool_calls), tool, assistant]
	require.Len(t, out.History, 5)
	assert.Equal(t, chatmsg.RoleAssistant, out.History[2].Role)
	require.Len(t, out.History[2].ToolCalls, 1)
	assert.Equal(t, chatmsg.RoleTool, out.History[3].Role)
	assert.Equal(t, "call-1", out.History[3].ToolCallID)
	assert.Equal(t, `"found it"`, out.History[3].Content)
}

// TestExecute_LoopSuppression covers E3: the same tool call repeated
// reaches the registry exactly once; later repeats get a suppression
// message instead of a second execution.
func TestExecute_LoopSuppression(t *testing.T) {
	registry := tool.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(tool.NewNativeTool(
		"search", "looks something up", echoToolSchema(),
		func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
			calls++
			return tool.Result{Status: tool.StatusSuccessNoData, Output: json.RawMessage(`"nothing"`)}, nil
		},
	)))

	repeatedCall := chatmsg.ToolCall{
		ID:   "dup",
		Type: "function",
		Function: chatmsg.ToolCallFunction{
			Name:      "search",
			Arguments: `{"query":"nothing"}`,
		},
	}

	model := mock.NewClient(
		llm.Response{ToolCalls: []chatmsg.ToolCall{repeatedCall}},
		llm.Response{ToolCalls: []chatmsg.ToolCall{repeatedCall}},
		llm.Response{ToolCalls: []chatmsg.ToolCall{repeatedCall}},
		llm.Response{Content: "giving up"},
	)

	a := agent.New(agent.Config{
		Name:         "persistent",
		SystemPrompt: "You are helpful.",
		ToolRegistry: registry,
		Model:        model,
	}, telemetry.Bundle{})

	out, err := a.Execute(context.Background(), agent.Input{Data: "look for nothing"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "tool should execute exactly once across repeated identical calls")
	assert.Equal(t, "giving up", out.Text)

	toolMsgCount := 0
	for _, msg := range out.History {
		if msg.Role == chatmsg.RoleTool {
			toolMsgCount++
		}
	}
	assert.Equal(t, 3, toolMsgCount)
}

// TestExecute_IterationCapExceeded covers E4: a model that never stops
// calling tools fails once max_tool_iterations is exceeded instead of
// looping forever.
func TestExecute_IterationCapExceeded(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.NewNativeTool(
		"counter", "increments something", echoToolSchema(),
		func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
			return tool.Result{Status: tool.StatusSuccess, Output: json.RawMessage(`1`)}, nil
		},
	)))

	const maxIter = 3
	script := make([]llm.Response, 0, maxIter+2)
	for i := 0; i < maxIter+2; i++ {
		script = append(script, llm.Response{
			ToolCalls: []chatmsg.ToolCall{{
				ID:   "call",
				Type: "function",
				Function: chatmsg.ToolCallFunction{
					Name:      "counter",
					Arguments: `{"query":"` + string(rune('a'+i)) + `"}`,
				},
			}},
		})
	}
	model := mock.NewClient(script...)

	a := agent.New(agent.Config{
		Name:              "looper",
		SystemPrompt:      "You are helpful.",
		ToolRegistry:      registry,
		MaxToolIterations: maxIter,
		Model:             model,
	}, telemetry.Bundle{})

	stream := eventstream.New("test", telemetry.Bundle{})
	_, err := a.Execute(context.Background(), agent.Input{Data: "go forever"}, agent.WithEventStream(stream))
	require.Error(t, err)

	events := stream.All()
	assert.Equal(t, 1, countEvents(events, eventstream.ScopeAgent, eventstream.TypeFailed))
	assert.Equal(t, 0, countEvents(events, eventstream.ScopeAgent, eventstream.TypeCompleted))
}

// alwaysPruneStrategy asks to prune whenever history holds more than one
// message, and its Prune keeps only the leading system message (if any) plus
// the most recent message, so the test can observe that the agent loop
// applies a bound ContextManager mid-run.
type alwaysPruneStrategy struct {
	pruneCalls *int
}

func (s alwaysPruneStrategy) ShouldPrune(history []chatmsg.ChatMessage, _ uint) bool {
	return len(history) > 1
}

func (s alwaysPruneStrategy) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	*s.pruneCalls++
	if len(history) <= 2 {
		return history, 0
	}
	// Keep the leading system message (if any) plus the most recent
	// message, dropping everything in between.
	out := []chatmsg.ChatMessage{}
	if len(history) > 0 && history[0].Role == chatmsg.RoleSystem {
		out = append(out, history[0])
	}
	out = append(out, history[len(history)-1])
	return out, 1
}

func (s alwaysPruneStrategy) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return uint(len(history))
}

func (s alwaysPruneStrategy) Name() string { return "always_prune" }

// TestExecute_ContextPruningApplied covers E5: a bound ContextManager is
// consulted and applied before each model call.
func TestExecute_ContextPruningApplied(t *testing.T) {
	model := mock.NewClient(llm.Response{Content: "done"})
	pruneCalls := 0

	a := agent.New(agent.Config{
		Name:           "pruner",
		SystemPrompt:   "You are helpful.",
		Model:          model,
		ContextManager: alwaysPruneStrategy{pruneCalls: &pruneCalls},
	}, telemetry.Bundle{})

	out, err := a.Execute(context.Background(), agent.Input{Data: "a fairly long message"})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Text)
	assert.GreaterOrEqual(t, pruneCalls, 1)
}

// TestExecute_ChatHistoryUsedVerbatim checks that an explicit ChatHistory
// bypasses system-prompt injection and free-form stringification.
func TestExecute_ChatHistoryUsedVerbatim(t *testing.T) {
	model := mock.NewClient(llm.Response{Content: "ack"})
	a := agent.New(agent.Config{
		Name:         "verbatim",
		SystemPrompt: "unused prompt",
		Model:        model,
	}, telemetry.Bundle{})

	history := []chatmsg.ChatMessage{
		chatmsg.NewSystem("custom system"),
		chatmsg.NewUser("custom user turn"),
	}
	out, err := a.Execute(context.Background(), agent.Input{ChatHistory: history})
	require.NoError(t, err)

	reqs := model.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "custom system", reqs[0].Messages[0].Content)
	assert.Equal(t, "custom user turn", reqs[0].Messages[1].Content)
	assert.Equal(t, "ack", out.Text)
}

// TestExecute_MalformedToolArguments checks that invalid JSON arguments
// produce a tool-result error message without ever reaching the registry.
func TestExecute_MalformedToolArguments(t *testing.T) {
	registry := tool.NewRegistry()
	called := false
	require.NoError(t, registry.Register(tool.NewNativeTool(
		"search", "looks something up", echoToolSchema(),
		func(ctx context.Context, arguments map[string]any) (tool.Result, error) {
			called = true
			return tool.Result{Status: tool.StatusSuccess}, nil
		},
	)))

	model := mock.NewClient(
		llm.Response{ToolCalls: []chatmsg.ToolCall{{
			ID:       "bad",
			Type:     "function",
			Function: chatmsg.ToolCallFunction{Name: "search", Arguments: `{not json`},
		}}},
		llm.Response{Content: "recovered"},
	)

	a := agent.New(agent.Config{
		Name:         "careful",
		SystemPrompt: "You are helpful.",
		ToolRegistry: registry,
		Model:        model,
	}, telemetry.Bundle{})

	out, err := a.Execute(context.Background(), agent.Input{Data: "trigger bad args"})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "recovered", out.Text)
}

// TestExecute_MissingModel checks the guard clause fires before any work
// is attempted.
func TestExecute_MissingModel(t *testing.T) {
	a := agent.New(agent.Config{Name: "no-model", SystemPrompt: "x"}, telemetry.Bundle{})
	_, err := a.Execute(context.Background(), agent.Input{Data: "hi"})
	assert.Error(t, err)
}

// TestExecute_MissingSystemPrompt checks the guard clause fires before any
// work is attempted.
func TestExecute_MissingSystemPrompt(t *testing.T) {
	model := mock.NewClient(llm.Response{Content: "unused"})
	a := agent.New(agent.Config{Name: "no-prompt", Model: model}, telemetry.Bundle{})
	_, err := a.Execute(context.Background(), agent.Input{Data: "hi"})
	assert.Error(t, err)
}
