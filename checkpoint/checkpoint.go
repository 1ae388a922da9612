// Package checkpoint serialises and restores a WorkflowContext snapshot
// (spec §6 "Checkpoint format"). No version field is carried; forward
// compatibility of the JSON shape is left to the caller.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/wfcontext"
)

// Snapshot is the JSON-serialisable shape of a WorkflowContext: chat
// history, metadata, max_context_tokens and input_output_ratio.
type Snapshot struct {
	ChatHistory      []chatmsg.ChatMessage `json:"chat_history"`
	WorkflowID       ids.WorkflowID        `json:"workflow_id"`
	CreatedAt        time.Time             `json:"created_at"`
	LastUpdated      time.Time             `json:"last_updated"`
	StepCount        int                   `json:"step_count"`
	MaxContextTokens uint                  `json:"max_context_tokens"`
	InputOutputRatio float64               `json:"input_output_ratio"`
}

// Serialise produces a Snapshot for ctx.
func Serialise(ctx *wfcontext.Context) Snapshot {
	md := ctx.Metadata()
	return Snapshot{
		ChatHistory:      ctx.History(),
		WorkflowID:       md.WorkflowID,
		CreatedAt:        md.CreatedAt,
		LastUpdated:      md.LastUpdated,
		StepCount:        md.StepCount,
		MaxContextTokens: ctx.MaxContextTokens(),
		InputOutputRatio: ctx.Ratio(),
	}
}

// Marshal serialises ctx to JSON.
func Marshal(ctx *wfcontext.Context) ([]byte, error) {
	raw, err := json.Marshal(Serialise(ctx))
	if err != nil {
		return nil, rterrors.Wrap(rterrors.KindWorkflow, "checkpoint.marshal", err, "failed to marshal checkpoint")
	}
	return raw, nil
}

// Unmarshal deserialises data into a Snapshot.
func Unmarshal(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, rterrors.Wrap(rterrors.KindWorkflow, "checkpoint.unmarshal", err, "failed to unmarshal checkpoint")
	}
	return snap, nil
}

// Restore installs snap as the context of a new workflow, preserving its
// workflow id, history, budget and ratio (spec §6 "Restoration deserialises
// and installs it as the context of a new workflow").
func Restore(snap Snapshot) *wfcontext.Context {
	ctx := wfcontext.New(snap.WorkflowID, snap.MaxContextTokens, snap.InputOutputRatio)
	ctx.SetHistory(snap.ChatHistory)
	return ctx
}
