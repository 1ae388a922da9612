// Package step implements the polymorphic Step family a Workflow sequences
// (spec §4.8): Agent, Transform, Conditional and SubWorkflow steps, each
// implementing a common Step interface.
package step

import (
	"context"

	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/wfcontext"
)

// Type names the concrete kind of a Step, as recorded on workflow_step
// events and in mermaid rendering.
type Type string

const (
	TypeAgent       Type = "agent"
	TypeTransform   Type = "transform"
	TypeConditional Type = "conditional"
	TypeSubWorkflow Type = "subworkflow"
)

// Metadata carries the positional context a Runtime hands each Step
// alongside its input data (spec §4.8 "stepInput carries ... metadata").
type Metadata struct {
	Index            int
	PreviousStepName string
	WorkflowID       ids.WorkflowID
}

// Input is a stepInput: the previous step's output data, positional
// metadata, and an optional reference to the shared workflow context.
type Input struct {
	Data    any
	Meta    Metadata
	Context *wfcontext.Context
}

// Output is a stepOutput: the data threaded to the next step.
type Output struct {
	Data any
}

// ExecContext is the execCtx a Runtime threads through every Step call: the
// shared Event Stream plus the ids a Step needs to stamp its own events.
type ExecContext struct {
	Events           *eventstream.Stream
	WorkflowID       ids.WorkflowID
	ParentWorkflowID ids.WorkflowID
}

// Step is the common interface every concrete step kind implements (spec
// §4.8 "every Step has name, step_type, execute_with_context").
type Step interface {
	Name() string
	StepType() Type
	ExecuteWithContext(ctx context.Context, input Input, execCtx ExecContext) (Output, error)
}
