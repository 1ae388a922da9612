// Package tool implements the Tool & Tool Registry (spec §4.4): named,
// JSON-Schema-described capabilities an Agent can invoke, plus a
// concurrent-safe registry that validates arguments before dispatch.
package tool

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tsharp/agent-runtime/rterrors"
)

// Tool is a named, schema-described capability an Agent can invoke. Execute
// may be called concurrently from different agent runs and must be
// concurrent-safe.
type Tool interface {
	// Name identifies the tool within a Registry.
	Name() string
	// Description is a human/model-facing summary of what the tool does.
	Description() string
	// InputSchema is the tool's JSON Schema for its arguments, as a raw
	// JSON document (e.g. decoded from a `map[string]any` literal).
	InputSchema() json.RawMessage
	// Execute runs the tool against parsed arguments and returns its
	// result. Implementations must be safe for concurrent use.
	Execute(ctx context.Context, arguments map[string]any) (Result, error)
}

// ResultStatus is the terminal status of a tool invocation, kept distinct
// from the conversation wire format so tool implementations stay decoupled
// from chatmsg.
type ResultStatus string

const (
	StatusSuccess       ResultStatus = "success"
	StatusSuccessNoData ResultStatus = "success_no_data"
	StatusError         ResultStatus = "error"
)

// Result is the outcome of one tool invocation (spec §3 "ToolResult").
type Result struct {
	Output     json.RawMessage `json:"output"`
	DurationMS float64         `json:"duration_ms"`
	Status     ResultStatus    `json:"status"`
	Message    string          `json:"message,omitempty"`
}

// FunctionDescriptor is the per-tool shape injected into a model request's
// tool schema list, forwarded by llm adapters without transformation (spec
// §4.4 "list_tools").
type FunctionDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// compiledSchema bundles a tool's raw schema with its compiled validator.
type compiledSchema struct {
	tool     Tool
	compiled *jsonschema.Schema
}

// compileSchema compiles t's JSON Schema for argument validation at
// registration time, so CallTool never pays compilation cost per invocation.
func compileSchema(t Tool) (*jsonschema.Schema, error) {
	raw := t.InputSchema()
	if len(raw) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, rterrors.Wrap(rterrors.KindConfiguration, "tool.compile_schema", err, "invalid JSON Schema for tool "+t.Name())
	}
	compiler := jsonschema.NewCompiler()
	const resourceName = "schema.json"
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return nil, rterrors.Wrap(rterrors.KindConfiguration, "tool.compile_schema", err, "invalid JSON Schema for tool "+t.Name())
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.KindConfiguration, "tool.compile_schema", err, "failed to compile JSON Schema for tool "+t.Name())
	}
	return schema, nil
}
