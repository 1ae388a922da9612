package step

import "context"

// Predicate decides which of a ConditionalStep's two branches runs.
type Predicate func(data any) bool

// ConditionalStep evaluates a predicate on its input data and delegates to
// one of two child steps; its own recorded StepType is always "conditional"
// regardless of which branch ran (spec §4.8 "Conditional Step").
type ConditionalStep struct {
	name      string
	predicate Predicate
	ifTrue    Step
	ifFalse   Step
}

// NewConditionalStep builds a ConditionalStep that runs ifTrue when
// predicate(data) is true, else ifFalse.
func NewConditionalStep(name string, predicate Predicate, ifTrue, ifFalse Step) *ConditionalStep {
	return &ConditionalStep{name: name, predicate: predicate, ifTrue: ifTrue, ifFalse: ifFalse}
}

func (s *ConditionalStep) Name() string   { return s.name }
func (s *ConditionalStep) StepType() Type { return TypeConditional }

// Branches exposes the two child steps for mermaid rendering.
func (s *ConditionalStep) Branches() (ifTrue, ifFalse Step) {
	return s.ifTrue, s.ifFalse
}

func (s *ConditionalStep) ExecuteWithContext(ctx context.Context, input Input, execCtx ExecContext) (Output, error) {
	branch := s.ifFalse
	if s.predicate(input.Data) {
		branch = s.ifTrue
	}
	return branch.ExecuteWithContext(ctx, input, execCtx)
}
