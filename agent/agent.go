// Package agent implements the Agent execution loop (spec §4.7): given an
// AgentInput, runs a bounded dialogue of model calls and tool invocations,
// emitting lifecycle events and updating the shared workflow context.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/contextmgr"
	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/telemetry"
	"github.com/tsharp/agent-runtime/tool"
	"github.com/tsharp/agent-runtime/toolloop"
	"github.com/tsharp/agent-runtime/wfcontext"
)

// DefaultMaxToolIterations bounds how many model calls one agent run may
// make when a Config does not set MaxToolIterations explicitly.
const DefaultMaxToolIterations = 25

// Config is an AgentConfig: {name, system_prompt, tool_registry?,
// max_tool_iterations, loop_detection_config?} (spec §3).
type Config struct {
	Name                string
	SystemPrompt        string
	ToolRegistry        *tool.Registry
	MaxToolIterations   int
	SuppressionTemplate toolloop.SuppressionTemplate
	ContextManager      contextmgr.Strategy
	Model               llm.Client
	Sampling            Sampling
}

// Sampling carries the optional sampling parameters forwarded on every
// model call.
type Sampling struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

func (c Config) maxIterations() int {
	if c.MaxToolIterations > 0 {
		return c.MaxToolIterations
	}
	return DefaultMaxToolIterations
}

// Input is an AgentInput: either explicit chat_history (used verbatim) or
// free-form Data used to synthesise a user message (spec §3).
type Input struct {
	// ChatHistory, when non-nil, is used verbatim as the starting
	// history; Data is ignored.
	ChatHistory []chatmsg.ChatMessage
	// Data is free-form input stringified into a user message appended
	// after the existing history when ChatHistory is nil.
	Data any
}

// Output is an AgentOutput: the final assistant text plus the full updated
// history (spec §3).
type Output struct {
	Text    string
	History []chatmsg.ChatMessage
}

// Agent runs one Config's execution loop.
type Agent struct {
	cfg   Config
	telem telemetry.Bundle
}

// New constructs an Agent from cfg. telem may be a zero-value Bundle.
func New(cfg Config, telem telemetry.Bundle) *Agent {
	return &Agent{cfg: cfg, telem: telem.Resolve()}
}

// execEnv bundles the optional collaborators one Execute call threads
// through every step of the loop.
type execEnv struct {
	events     *eventstream.Stream
	workflowID ids.WorkflowID
	parentID   ids.WorkflowID
	wctx       *wfcontext.Context
}

// Option configures one Execute call.
type Option func(*execEnv)

// WithEventStream attaches an Event Stream observer.
func WithEventStream(s *eventstream.Stream) Option {
	return func(e *execEnv) { e.events = s }
}

// WithWorkflowID attaches the workflow id used to stamp emitted events.
func WithWorkflowID(id ids.WorkflowID) Option {
	return func(e *execEnv) { e.workflowID = id }
}

// WithParentWorkflowID attaches a parent workflow id (SubWorkflow Steps).
func WithParentWorkflowID(id ids.WorkflowID) Option {
	return func(e *execEnv) { e.parentID = id }
}

// WithWorkflowContext binds a shared WorkflowContext: history is read from
// and written back to it instead of being purely local to this call.
func WithWorkflowContext(wctx *wfcontext.Context) Option {
	return func(e *execEnv) { e.wctx = wctx }
}

// Execute runs the bounded model/tool dialogue described by input, updating
// the bound WorkflowContext (if any) and emitting lifecycle events to the
// bound Event Stream (if any). See spec §4.7 for the full state machine.
func (a *Agent) Execute(ctx context.Context, input Input, opts ...Option) (Output, error) {
	env := &execEnv{workflowID: ids.NewWorkflowID()}
	for _, opt := range opts {
		opt(env)
	}

	if a.cfg.Model == nil {
		return Output{}, rterrors.New(rterrors.KindAgent, "agent.execute", "missing model client")
	}
	if a.cfg.SystemPrompt == "" {
		return Output{}, rterrors.New(rterrors.KindAgent, "agent.execute", "missing system prompt")
	}

	history, err := a.prepare(input, env)
	if err != nil {
		return Output{}, err
	}

	a.emit(ctx, env, eventstream.ScopeAgent, eventstream.TypeStarted, a.cfg.Name, eventstream.StatusRunning, "", nil)

	detector := toolloop.NewDetector()
	if a.cfg.SuppressionTemplate != nil {
		detector.SuppressionTemplate = a.cfg.SuppressionTemplate
	}

	for i := 1; ; i++ {
		if i > a.cfg.maxIterations() {
			err := rterrors.Newf(rterrors.KindAgent, "agent.execute",
				"exceeded max_tool_iterations (%d)", a.cfg.maxIterations())
			a.emit(ctx, env, eventstream.ScopeAgent, eventstream.TypeFailed, a.cfg.Name, eventstream.StatusFailed, err.Error(), nil)
			a.writeBack(env, history)
			return Output{}, err
		}

		if a.cfg.ContextManager != nil {
			estimated := a.cfg.ContextManager.EstimateTokens(history)
			if a.cfg.ContextManager.ShouldPrune(history, estimated) {
				history, _ = a.cfg.ContextManager.Prune(history)
			}
		}

		resp, err := a.callModel(ctx, env, history, i)
		if err != nil {
			a.emit(ctx, env, eventstream.ScopeAgent, eventstream.TypeFailed, a.cfg.Name, eventstream.StatusFailed, err.Error(), nil)
			a.writeBack(env, history)
			return Output{}, err
		}

		if !resp.HasToolCalls() {
			finalMsg := chatmsg.NewAssistant(strings.TrimSpace(resp.Content))
			history = append(history, finalMsg)
			a.writeBack(env, history)
			a.emit(ctx, env, eventstream.ScopeAgent, eventstream.TypeCompleted, a.cfg.Name, eventstream.StatusCompleted, "", nil)
			return Output{Text: finalMsg.Content, History: history}, nil
		}

		history = append(history, chatmsg.NewAssistant(resp.Content, resp.ToolCalls...))
		history = a.dispatchTools(ctx, env, detector, history, resp.ToolCalls)
		a.writeBack(env, history)
	}
}

// prepare implements spec §4.7 step 1.
func (a *Agent) prepare(input Input, env *execEnv) ([]chatmsg.ChatMessage, error) {
	if input.ChatHistory != nil {
		return append([]chatmsg.ChatMessage{}, input.ChatHistory...), nil
	}

	var history []chatmsg.ChatMessage
	if env.wctx != nil {
		history = env.wctx.History()
	}

	hasSystem := false
	for _, msg := range history {
		if msg.Role == chatmsg.RoleSystem && msg.Content == a.cfg.SystemPrompt {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		history = append([]chatmsg.ChatMessage{chatmsg.NewSystem(a.cfg.SystemPrompt)}, history...)
	}

	history = append(history, chatmsg.NewUser(stringifyInput(input.Data)))
	return history, nil
}

// stringifyInput renders free-form input data as a user message, pretty-
// printing non-string JSON (spec §4.7 step 1).
func stringifyInput(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}

// callModel implements spec §4.7 steps 3-5 (minus the finalise branch,
// which the caller handles).
func (a *Agent) callModel(ctx context.Context, env *execEnv, history []chatmsg.ChatMessage, iteration int) (llm.Response, error) {
	componentID := ids.AgentLLM(a.cfg.Name, iteration)
	a.emit(ctx, env, eventstream.ScopeLLMRequest, eventstream.TypeStarted, componentID, eventstream.StatusRunning, "", nil)

	req := llm.Request{
		Messages:    history,
		Temperature: a.cfg.Sampling.Temperature,
		MaxTokens:   a.cfg.Sampling.MaxTokens,
		TopP:        a.cfg.Sampling.TopP,
	}
	if a.cfg.ToolRegistry != nil {
		req.Tools = a.cfg.ToolRegistry.ListTools()
	}

	sink := func(ctx context.Context, chunk llm.Chunk) {
		if chunk.ContentDelta != "" {
			a.emit(ctx, env, eventstream.ScopeLLMRequest, eventstream.TypeProgress, componentID, eventstream.StatusRunning, "", chunk)
		}
	}

	resp, err := a.cfg.Model.Stream(ctx, req, sink)
	if err != nil {
		a.emit(ctx, env, eventstream.ScopeLLMRequest, eventstream.TypeFailed, componentID, eventstream.StatusFailed, err.Error(), nil)
		return llm.Response{}, err
	}
	a.emit(ctx, env, eventstream.ScopeLLMRequest, eventstream.TypeCompleted, componentID, eventstream.StatusCompleted, "", nil)
	return resp, nil
}

// dispatchTools implements spec §4.7 step 6: parse, loop-check, execute (or
// suppress), and append a tool message per ToolCall, in declaration order.
func (a *Agent) dispatchTools(ctx context.Context, env *execEnv, detector *toolloop.Detector, history []chatmsg.ChatMessage, calls []chatmsg.ToolCall) []chatmsg.ChatMessage {
	for _, call := range calls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			history = append(history, chatmsg.NewToolResult(call.ID, "invalid tool arguments: "+err.Error()))
			continue
		}

		if prior, found := detector.CheckForLoop(call.Function.Name, call.Function.Arguments); found {
			suppression := detector.Suppression(call.Function.Name, prior)
			detector.Record(call.Function.Name, call.Function.Arguments, prior)
			history = append(history, chatmsg.NewToolResult(call.ID, suppression))
			a.emit(ctx, env, eventstream.ScopeAgent, eventstream.TypeProgress, a.cfg.Name, eventstream.StatusRunning, "tool_loop_detected: "+call.Function.Name, nil)
			continue
		}

		toolComponentID := call.Function.Name
		a.emit(ctx, env, eventstream.ScopeTool, eventstream.TypeStarted, toolComponentID, eventstream.StatusRunning, "", nil)

		var result tool.Result
		var err error
		if a.cfg.ToolRegistry != nil {
			result, err = a.cfg.ToolRegistry.CallTool(ctx, call.Function.Name, args)
		} else {
			err = rterrors.New(rterrors.KindTool, "agent.dispatch_tools", "no tool registry configured").
				WithToolReason(rterrors.ToolReasonNotFound)
		}

		if err != nil {
			a.emit(ctx, env, eventstream.ScopeTool, eventstream.TypeFailed, toolComponentID, eventstream.StatusFailed, err.Error(), nil)
			result = tool.Result{Status: tool.StatusError, Message: err.Error()}
		} else {
			a.emit(ctx, env, eventstream.ScopeTool, eventstream.TypeCompleted, toolComponentID, eventstream.StatusCompleted, "", nil)
		}

		detector.Record(call.Function.Name, call.Function.Arguments, result)
		history = append(history, chatmsg.NewToolResult(call.ID, toolResultContent(result)))
	}
	return history
}

func toolResultContent(result tool.Result) string {
	if result.Status == tool.StatusError {
		return result.Message
	}
	return string(result.Output)
}

// writeBack updates the bound WorkflowContext's history, if one is attached
// (spec §4.7 "updates shared workflow context history if one is bound").
func (a *Agent) writeBack(env *execEnv, history []chatmsg.ChatMessage) {
	if env.wctx != nil {
		env.wctx.SetHistory(history)
	}
}

// emit appends an event to the bound stream, if any, swallowing validation
// errors from malformed component ids into a log line rather than failing
// the agent run (events are an observability side channel, not part of the
// execution contract).
func (a *Agent) emit(ctx context.Context, env *execEnv, scope eventstream.Scope, typ eventstream.Type, componentID string, status eventstream.Status, message string, data any) {
	if env.events == nil {
		return
	}
	if _, err := env.events.Append(ctx, scope, typ, componentID, status, env.workflowID, env.parentID, message, data); err != nil {
		a.telem.Logger.Warn(ctx, "failed to append agent event", "component", "agent", "error", err)
	}
}
