package tool

import (
	"context"
	"encoding/json"
)

// ExecuteFunc is the closure signature a NativeTool wraps (spec §4.4
// "parameterised by an async function pointer/closure").
type ExecuteFunc func(ctx context.Context, arguments map[string]any) (Result, error)

// NativeTool is an in-process Tool implementation backed by a closure. It
// is the concrete Tool most Registry.Register callers will reach for.
type NativeTool struct {
	name        string
	description string
	inputSchema json.RawMessage
	execute     ExecuteFunc
}

// NewNativeTool constructs a NativeTool. inputSchema must be a valid JSON
// Schema document (see compileSchema).
func NewNativeTool(name, description string, inputSchema json.RawMessage, execute ExecuteFunc) *NativeTool {
	return &NativeTool{name: name, description: description, inputSchema: inputSchema, execute: execute}
}

func (t *NativeTool) Name() string                { return t.name }
func (t *NativeTool) Description() string         { return t.description }
func (t *NativeTool) InputSchema() json.RawMessage { return t.inputSchema }

// Execute calls the wrapped closure. Concurrent-safety is the closure
// author's responsibility, same as any other NativeTool.
func (t *NativeTool) Execute(ctx context.Context, arguments map[string]any) (Result, error) {
	return t.execute(ctx, arguments)
}
