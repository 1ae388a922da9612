// Package ids defines the identifier types and enforced formats used across
// the agent workflow runtime (spec §3 "Identifiers").
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// WorkflowID opaquely identifies one workflow run.
type WorkflowID string

// EventID opaquely identifies one appended event.
type EventID string

// Offset is the monotonic sequence number assigned to an event at append
// time. Offsets are strictly increasing, start at 0, and have no gaps.
type Offset uint64

// NewWorkflowID mints a fresh, random WorkflowID.
func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.NewString())
}

// NewEventID mints a fresh, random EventID.
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

// WorkflowStep formats the "<workflow>:step:<index>" component id used for
// workflow_step-scoped events.
func WorkflowStep(workflow WorkflowID, index int) string {
	return fmt.Sprintf("%s:step:%d", workflow, index)
}

// AgentLLM formats the "<agent>:llm:<iteration>" component id used for
// llm_request-scoped events.
func AgentLLM(agentName string, iteration int) string {
	return fmt.Sprintf("%s:llm:%d", agentName, iteration)
}

// System formats the "system:<name>" component id used for system-scoped
// events.
func System(name string) string {
	return fmt.Sprintf("system:%s", name)
}
