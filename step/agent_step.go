package step

import (
	"context"

	"github.com/tsharp/agent-runtime/agent"
	"github.com/tsharp/agent-runtime/rterrors"
)

// AgentStep runs an Agent, pulling history from the workflow context (if
// attached) and writing the updated history back (spec §4.8 "Agent Step").
type AgentStep struct {
	name  string
	agent *agent.Agent
}

// NewAgentStep wraps a configured Agent as a named Step.
func NewAgentStep(name string, a *agent.Agent) *AgentStep {
	return &AgentStep{name: name, agent: a}
}

func (s *AgentStep) Name() string   { return s.name }
func (s *AgentStep) StepType() Type { return TypeAgent }

// ExecuteWithContext runs the wrapped Agent against input.Data, sharing
// input.Context's history if one is bound. With no context attached, the
// agent runs stateless: it still sees input.Data but carries no history
// across steps (spec §4.8 "If no context is attached, the agent runs
// stateless").
func (s *AgentStep) ExecuteWithContext(ctx context.Context, input Input, execCtx ExecContext) (Output, error) {
	opts := []agent.Option{
		agent.WithEventStream(execCtx.Events),
		agent.WithWorkflowID(execCtx.WorkflowID),
	}
	if execCtx.ParentWorkflowID != "" {
		opts = append(opts, agent.WithParentWorkflowID(execCtx.ParentWorkflowID))
	}
	if input.Context != nil {
		opts = append(opts, agent.WithWorkflowContext(input.Context))
	}

	out, err := s.agent.Execute(ctx, agent.Input{Data: input.Data}, opts...)
	if err != nil {
		return Output{}, rterrors.Wrap(rterrors.KindWorkflow, "step.agent.execute", err, "agent step "+s.name+" failed")
	}
	return Output{Data: out.Text}, nil
}
