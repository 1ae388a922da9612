package workflow

import (
	"context"

	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/step"
	"github.com/tsharp/agent-runtime/telemetry"
)

// Runtime sequences a Workflow's Steps, threading step k's output as step
// k+1's input, emitting lifecycle events to a bound Event Stream (spec
// §4.9 "Runtime").
type Runtime struct {
	events *eventstream.Stream
	telem  telemetry.Bundle
}

// NewRuntime constructs a Runtime publishing to events. telem may be a
// zero-value Bundle.
func NewRuntime(events *eventstream.Stream, telem telemetry.Bundle) *Runtime {
	return &Runtime{events: events, telem: telem.Resolve()}
}

// EventStream exposes the shared stream (spec §4.9 "event_stream()").
func (r *Runtime) EventStream() *eventstream.Stream {
	return r.events
}

// EventsFromOffset is a replay convenience over the bound stream (spec
// §4.9 "events_from_offset(o)").
func (r *Runtime) EventsFromOffset(from ids.Offset) []eventstream.Event {
	return r.events.FromOffset(from)
}

// Execute runs wf from Pending to Completed or Failed (spec §4.9
// "execute(workflow) -> run").
func (r *Runtime) Execute(ctx context.Context, wf *Workflow) (*Run, error) {
	return r.run(ctx, wf, "")
}

// ExecuteWithParent is identical to Execute, but every emitted event
// carries parentWorkflowID (spec §4.9 "execute_with_parent").
func (r *Runtime) ExecuteWithParent(ctx context.Context, wf *Workflow, parentWorkflowID ids.WorkflowID) (*Run, error) {
	return r.run(ctx, wf, parentWorkflowID)
}

// RunSubWorkflow implements step.Runner: it adapts the nested step.Workflow
// built by a SubWorkflow Step's builder into a full Workflow and re-enters
// the Runtime, returning the run's final step output (spec §4.8 "Re-enters
// the Runtime ... passes the parent workflow id").
func (r *Runtime) RunSubWorkflow(ctx context.Context, sw *step.Workflow, parentWorkflowID ids.WorkflowID, events *eventstream.Stream) (step.Output, error) {
	nested := &Workflow{Workflow: sw, State: StatePending}
	run, err := r.run(ctx, nested, parentWorkflowID)
	if err != nil {
		return step.Output{}, err
	}
	return run.FinalOutput, nil
}

func (r *Runtime) run(ctx context.Context, wf *Workflow, parentWorkflowID ids.WorkflowID) (*Run, error) {
	wf.State = StateRunning
	r.emit(ctx, eventstream.ScopeWorkflow, eventstream.TypeStarted, string(wf.ID), eventstream.StatusRunning, wf.ID, parentWorkflowID, "", nil)

	run := &Run{WorkflowID: wf.ID, State: StateRunning}
	execCtx := step.ExecContext{Events: r.events, WorkflowID: wf.ID, ParentWorkflowID: parentWorkflowID}

	data := wf.InitialInput
	var previousStepName string

	for i, s := range wf.Steps {
		componentID := ids.WorkflowStep(wf.ID, i)
		r.emit(ctx, eventstream.ScopeWorkflowStep, eventstream.TypeStarted, componentID, eventstream.StatusRunning, wf.ID, parentWorkflowID, s.Name(), nil)

		input := step.Input{
			Data: data,
			Meta: step.Metadata{Index: i, PreviousStepName: previousStepName, WorkflowID: wf.ID},
		}
		if wf.Context != nil {
			input.Context = wf.Context
		}

		out, err := s.ExecuteWithContext(ctx, input, execCtx)
		result := StepResult{Name: s.Name(), Type: s.StepType(), Output: out, Err: err}
		run.Steps = append(run.Steps, result)

		if err != nil {
			r.emit(ctx, eventstream.ScopeWorkflowStep, eventstream.TypeFailed, componentID, eventstream.StatusFailed, wf.ID, parentWorkflowID, err.Error(), nil)
			wf.State = StateFailed
			run.State = StateFailed
			run.FailedStep = s.Name()
			r.emit(ctx, eventstream.ScopeWorkflow, eventstream.TypeFailed, string(wf.ID), eventstream.StatusFailed, wf.ID, parentWorkflowID, err.Error(), nil)
			return run, rterrors.Wrap(rterrors.KindWorkflow, "workflow.execute", err, "step "+s.Name()+" failed")
		}

		r.emit(ctx, eventstream.ScopeWorkflowStep, eventstream.TypeCompleted, componentID, eventstream.StatusCompleted, wf.ID, parentWorkflowID, "", nil)
		if wf.Context != nil {
			wf.Context.IncrementStepCount()
		}
		data = out.Data
		previousStepName = s.Name()
		run.FinalOutput = out
	}

	wf.State = StateCompleted
	run.State = StateCompleted
	r.emit(ctx, eventstream.ScopeWorkflow, eventstream.TypeCompleted, string(wf.ID), eventstream.StatusCompleted, wf.ID, parentWorkflowID, "", nil)
	return run, nil
}

func (r *Runtime) emit(ctx context.Context, scope eventstream.Scope, typ eventstream.Type, componentID string, status eventstream.Status, workflowID, parentWorkflowID ids.WorkflowID, message string, data any) {
	if r.events == nil {
		return
	}
	if _, err := r.events.Append(ctx, scope, typ, componentID, status, workflowID, parentWorkflowID, message, data); err != nil {
		r.telem.Logger.Warn(ctx, "failed to append workflow event", "component", "workflow", "error", err)
	}
}
