// Package grpctool implements the External Tool transport (spec §4.4, §6
// "External tool transport (consumed)"): a hand-rolled gRPC service
// exposing ListTools/CallTool over a JSON wire codec, so no .proto/protoc
// step is needed to stand up an out-of-process tool server as an external
// collaborator.
package grpctool

import "encoding/json"

// ToolDescriptor is the wire shape of tool.FunctionDescriptor.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ListToolsRequest carries no fields; its presence as a distinct type keeps
// the wire protocol symmetrical and open to future filters.
type ListToolsRequest struct{}

// ListToolsResponse is the reply to ListTools.
type ListToolsResponse struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolRequest names the tool to invoke and its JSON arguments.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// CallToolResponse is the wire shape of tool.Result.
type CallToolResponse struct {
	Output     json.RawMessage `json:"output"`
	DurationMS float64         `json:"duration_ms"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
}

// ErrorResponse is a wire shape for a failure message. The server in this
// package does not send it: a failed CallTool reaches the client as a plain
// gRPC status error carrying the message text.
type ErrorResponse struct {
	Message string `json:"message"`
}
