package llm

import (
	"sort"

	"github.com/tsharp/agent-runtime/chatmsg"
)

// Accumulator assembles streamed Chunks into a final Response. Concrete
// adapters feed it every Chunk they receive from the wire and call Finish
// once the stream ends (spec §4.6 "streaming tool-call fragments addressed
// by index must be accumulated").
type Accumulator struct {
	content      string
	model        string
	finishReason string
	usage        *Usage
	toolCalls    map[int]*chatmsg.ToolCall
	order        []int
}

// NewAccumulator constructs an empty Accumulator for model.
func NewAccumulator(model string) *Accumulator {
	return &Accumulator{model: model, toolCalls: make(map[int]*chatmsg.ToolCall)}
}

// AddContent appends a content fragment.
func (a *Accumulator) AddContent(delta string) {
	a.content += delta
}

// AddToolCallFragment merges a tool-call fragment addressed by index into
// the in-progress ToolCall for that index, creating it on first sight.
func (a *Accumulator) AddToolCallFragment(index int, idDelta, nameDelta, argsDelta string) {
	tc, ok := a.toolCalls[index]
	if !ok {
		tc = &chatmsg.ToolCall{Type: "function"}
		a.toolCalls[index] = tc
		a.order = append(a.order, index)
	}
	tc.ID += idDelta
	tc.Function.Name += nameDelta
	tc.Function.Arguments += argsDelta
}

// SetFinishReason records the stream's finish reason.
func (a *Accumulator) SetFinishReason(reason string) {
	if reason != "" {
		a.finishReason = reason
	}
}

// SetUsage records usage counts, when the provider reports them.
func (a *Accumulator) SetUsage(usage Usage) {
	a.usage = &usage
}

// Finish assembles the final Response, presenting each accumulated tool
// call as one complete unit in index order.
func (a *Accumulator) Finish() Response {
	var calls []chatmsg.ToolCall
	if len(a.order) > 0 {
		sort.Ints(a.order)
		calls = make([]chatmsg.ToolCall, 0, len(a.order))
		for _, idx := range a.order {
			calls = append(calls, *a.toolCalls[idx])
		}
	}
	return Response{
		Content:      a.content,
		Model:        a.model,
		Usage:        a.usage,
		FinishReason: a.finishReason,
		ToolCalls:    calls,
	}
}
