package step

import (
	"context"

	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/wfcontext"
)

// Workflow is the minimal shape a SubWorkflow Step's Builder produces and a
// Runner executes: an ordered Step sequence plus an initial input and
// optional shared context (spec §4.9 "A Workflow is {id, steps,
// initial_input, state, context?}"). The full Runtime — state machine,
// event emission, mermaid rendering — lives in the workflow package, which
// imports step; this lightweight mirror lets a SubWorkflow Step re-enter
// execution without step importing workflow back.
type Workflow struct {
	ID           ids.WorkflowID
	Steps        []Step
	InitialInput any
	Context      *wfcontext.Context
}

// Runner is implemented by the workflow Runtime. A SubWorkflow Step calls
// it to re-enter execution for its nested Workflow (spec §4.8 "Re-enters
// the Runtime via a path that preserves the shared Event Stream and passes
// the parent workflow id"). Named distinctly from the Runtime's
// spec-literal ExecuteWithParent(workflow, parent_workflow_id) method,
// since that one operates on the richer workflow.Workflow type and would
// create an import cycle if used here directly.
type Runner interface {
	RunSubWorkflow(ctx context.Context, wf *Workflow, parentWorkflowID ids.WorkflowID, events *eventstream.Stream) (Output, error)
}

// WorkflowBuilder constructs a fresh nested Workflow from a SubWorkflow
// Step's input data. It is fixed at construction and invoked once per
// execution, breaking the would-be Workflow/Step reference cycle (spec
// §9 "Cyclic references between Workflow and Step/SubWorkflow").
type WorkflowBuilder func(input any) *Workflow

// SubWorkflowStep builds a nested Workflow and re-enters the Runner,
// sharing the parent's workflow context reference so context propagates
// both inward and outward (spec §4.8 "SubWorkflow Step").
type SubWorkflowStep struct {
	name   string
	runner Runner
	build  WorkflowBuilder
}

// NewSubWorkflowStep wraps build as a named Step, re-entering runner for
// execution.
func NewSubWorkflowStep(name string, runner Runner, build WorkflowBuilder) *SubWorkflowStep {
	return &SubWorkflowStep{name: name, runner: runner, build: build}
}

func (s *SubWorkflowStep) Name() string   { return s.name }
func (s *SubWorkflowStep) StepType() Type { return TypeSubWorkflow }

// Preview invokes the Builder with a nil input and returns the resulting
// nested Workflow without executing it, so a renderer can walk its step
// graph structurally (spec §4.9 "recursive for SubWorkflow (inlined as
// nested subgraphs)").
func (s *SubWorkflowStep) Preview() *Workflow {
	return s.build(nil)
}

func (s *SubWorkflowStep) ExecuteWithContext(ctx context.Context, input Input, execCtx ExecContext) (Output, error) {
	wf := s.build(input.Data)
	wf.InitialInput = input.Data
	if input.Context != nil {
		wf.Context = input.Context
	}
	return s.runner.RunSubWorkflow(ctx, wf, execCtx.WorkflowID, execCtx.Events)
}
