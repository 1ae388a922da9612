// Package workflow implements the Workflow & Runtime (spec §4.9): a
// sequential stepper over a Workflow's Steps, threading each Step's output
// into the next, emitting lifecycle events, and exposing mermaid
// visualisation over the step graph.
package workflow

import (
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/step"
	"github.com/tsharp/agent-runtime/wfcontext"
)

// State is a Workflow's lifecycle state (spec §4.9 "Pending → Running →
// (Completed | Failed)").
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Workflow is {id, steps, initial_input, state, context?} (spec §4.9). It
// embeds step.Workflow — the minimal shape a SubWorkflow Step's builder
// also produces — adding the State a top-level Workflow additionally
// tracks.
type Workflow struct {
	*step.Workflow
	State State
}

// New constructs a Pending Workflow over steps, with the given initial
// input and an optional shared context.
func New(id ids.WorkflowID, steps []step.Step, initialInput any, wctx *wfcontext.Context) *Workflow {
	return &Workflow{
		Workflow: &step.Workflow{ID: id, Steps: steps, InitialInput: initialInput, Context: wctx},
		State:    StatePending,
	}
}

// StepResult records one step's outcome within a Run (spec §4.9 "the run
// is returned with the failed step recorded").
type StepResult struct {
	Name   string
	Type   step.Type
	Output step.Output
	Err    error
}

// Run is the outcome of one Runtime.Execute (or ExecuteWithParent) call.
type Run struct {
	WorkflowID  ids.WorkflowID
	State       State
	Steps       []StepResult
	FinalOutput step.Output
	// FailedStep names the step that caused State to become Failed, or is
	// empty when State is Completed.
	FailedStep string
}
