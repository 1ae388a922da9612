package tool

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tsharp/agent-runtime/rterrors"
)

// Registry maps tool name to Tool. Once built it is read-mostly: Register
// is expected at setup time, CallTool/Get/Has/ListNames/ListTools during execution, with no
// further structural change (spec §5 "Tool Registry is read-mostly; once
// built it is effectively immutable during execution").
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*compiledSchema
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*compiledSchema)}
}

// Register compiles t's input schema and adds it to the registry, keyed by
// t.Name(). A later Register with the same name overwrites the earlier one.
func (r *Registry) Register(t Tool) error {
	compiled, err := compileSchema(t)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = &compiledSchema{tool: t, compiled: compiled}
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ListNames returns every registered tool name, in no particular order.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ListTools returns a FunctionDescriptor per registered tool, suitable for
// injection into a model request's tool schema list (spec §4.4).
func (r *Registry) ListTools() []FunctionDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FunctionDescriptor, 0, len(r.tools))
	for _, entry := range r.tools {
		out = append(out, FunctionDescriptor{
			Name:        entry.tool.Name(),
			Description: entry.tool.Description(),
			Parameters:  entry.tool.InputSchema(),
		})
	}
	return out
}

// CallTool validates arguments against the named tool's schema, then
// invokes it, returning an invalid-parameters *rterrors.Error (never a
// panic) if name is unknown or arguments fail validation (spec §4.4).
func (r *Registry) CallTool(ctx context.Context, name string, arguments map[string]any) (Result, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, rterrors.New(rterrors.KindTool, "tool.call_tool", "unknown tool: "+name).
			WithToolReason(rterrors.ToolReasonInvalidParameters)
	}

	if entry.compiled != nil {
		if err := entry.compiled.Validate(toValidatable(arguments)); err != nil {
			return Result{}, rterrors.Wrap(rterrors.KindTool, "tool.call_tool", err, "invalid arguments for tool "+name).
				WithToolReason(rterrors.ToolReasonInvalidParameters)
		}
	}

	start := time.Now()
	result, err := entry.tool.Execute(ctx, arguments)
	if err != nil {
		return Result{}, rterrors.Wrap(rterrors.KindTool, "tool.call_tool", err, "tool execution failed: "+name).
			WithToolReason(rterrors.ToolReasonExecutionFailed).WithRetryable(true)
	}
	if result.DurationMS == 0 {
		result.DurationMS = float64(time.Since(start).Microseconds()) / 1000.0
	}
	return result, nil
}

// toValidatable round-trips arguments through JSON so jsonschema validates
// against the same decoded shape (numbers as float64, nested maps) that a
// real `json.Unmarshal` of the model's argument string would produce.
func toValidatable(arguments map[string]any) any {
	raw, err := json.Marshal(arguments)
	if err != nil {
		return arguments
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return arguments
	}
	return decoded
}
