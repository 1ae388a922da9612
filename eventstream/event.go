package eventstream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tsharp/agent-runtime/ids"
)

// Scope identifies the subsystem an Event describes (spec §3).
type Scope string

const (
	ScopeWorkflow     Scope = "workflow"
	ScopeWorkflowStep Scope = "workflow_step"
	ScopeAgent        Scope = "agent"
	ScopeLLMRequest   Scope = "llm_request"
	ScopeTool         Scope = "tool"
	ScopeSystem       Scope = "system"
)

// Type identifies the lifecycle transition an Event records.
type Type string

const (
	TypeStarted   Type = "started"
	TypeProgress  Type = "progress"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
	TypeCanceled  Type = "canceled"
)

// Status is the status an Event's subject had at the time of the event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Event is an immutable record of a single lifecycle transition, stamped
// with a monotonically increasing Offset at append time (spec §3 "Event").
type Event struct {
	ID                ids.EventID     `json:"id"`
	Offset            ids.Offset      `json:"offset"`
	TimestampUnixMS    int64          `json:"timestamp"`
	Scope             Scope           `json:"scope"`
	Type              Type            `json:"type"`
	ComponentID       string          `json:"component_id"`
	Status            Status          `json:"status"`
	WorkflowID        ids.WorkflowID  `json:"workflow_id"`
	ParentWorkflowID  ids.WorkflowID  `json:"parent_workflow_id,omitempty"`
	Message           string          `json:"message,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
}

// validComponentID enforces the component-id formats named in spec §3 for
// scopes that have an enforced shape. Tool and agent component ids are
// simple names and are not further constrained here.
func validComponentID(scope Scope, componentID string) error {
	if componentID == "" {
		return fmt.Errorf("component_id is required for scope %q", scope)
	}
	switch scope {
	case ScopeWorkflowStep:
		if !hasMarkerField(componentID, ":step:") {
			return fmt.Errorf("workflow_step component_id %q must match \"<workflow>:step:<index>\"", componentID)
		}
	case ScopeLLMRequest:
		if !hasMarkerField(componentID, ":llm:") {
			return fmt.Errorf("llm_request component_id %q must match \"<agent>:llm:<iteration>\"", componentID)
		}
	case ScopeSystem:
		if !strings.HasPrefix(componentID, "system:") {
			return fmt.Errorf("system component_id %q must match \"system:<name>\"", componentID)
		}
	}
	return nil
}

// hasMarkerField reports whether s contains marker with non-empty text on
// both sides, e.g. "<workflow>:step:<index>" for marker ":step:".
func hasMarkerField(s, marker string) bool {
	idx := strings.Index(s, marker)
	return idx > 0 && idx+len(marker) < len(s)
}
