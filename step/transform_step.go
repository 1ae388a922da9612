package step

import (
	"context"
	"fmt"

	"github.com/tsharp/agent-runtime/rterrors"
)

// TransformFunc is a pure JSON-to-JSON function a TransformStep wraps.
type TransformFunc func(data any) (any, error)

// TransformStep applies a pure function to its input data, never touching
// the workflow context (spec §4.8 "Transform Step"). A panicking
// TransformFunc is trapped and converted into a step error at the
// boundary rather than propagating.
type TransformStep struct {
	name string
	fn   TransformFunc
}

// NewTransformStep wraps fn as a named Step.
func NewTransformStep(name string, fn TransformFunc) *TransformStep {
	return &TransformStep{name: name, fn: fn}
}

func (s *TransformStep) Name() string   { return s.name }
func (s *TransformStep) StepType() Type { return TypeTransform }

func (s *TransformStep) ExecuteWithContext(ctx context.Context, input Input, execCtx ExecContext) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rterrors.Newf(rterrors.KindWorkflow, "step.transform.execute",
				"transform step %s panicked: %v", s.name, r)
		}
	}()

	result, fnErr := s.fn(input.Data)
	if fnErr != nil {
		return Output{}, rterrors.Wrap(rterrors.KindWorkflow, "step.transform.execute", fnErr,
			fmt.Sprintf("transform step %s failed", s.name))
	}
	return Output{Data: result}, nil
}
