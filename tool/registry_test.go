package tool_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/tool"
)

func calculatorSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"op": {"type": "string"},
			"a": {"type": "number"},
			"b": {"type": "number"}
		},
		"required": ["op", "a", "b"]
	}`)
}

func newCalculator() *tool.NativeTool {
	return tool.NewNativeTool("calculator", "adds two numbers", calculatorSchema(),
		func(ctx context.Context, args map[string]any) (tool.Result, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			out, _ := json.Marshal(map[string]float64{"result": a + b})
			return tool.Result{Output: out, Status: tool.StatusSuccess}, nil
		})
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(newCalculator()))

	assert.True(t, r.Has("calculator"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"calculator"}, r.ListNames())

	result, err := r.CallTool(context.Background(), "calculator", map[string]any{"op": "add", "a": 5.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, tool.StatusSuccess, result.Status)
	assert.JSONEq(t, `{"result":8}`, string(result.Output))
}

func TestRegistry_CallUnknownTool_ReturnsInvalidParamsError(t *testing.T) {
	r := tool.NewRegistry()
	_, err := r.CallTool(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Equal(t, rterrors.KindTool, rterrors.KindOf(err))
	var rtErr *rterrors.Error
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, rterrors.ToolReasonInvalidParameters, rtErr.ToolReason)
}

func TestRegistry_CallWithInvalidArguments_FailsValidation(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(newCalculator()))

	_, err := r.CallTool(context.Background(), "calculator", map[string]any{"op": "add"})
	require.Error(t, err)
	var rtErr *rterrors.Error
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, rterrors.ToolReasonInvalidParameters, rtErr.ToolReason)
}

func TestRegistry_ListTools(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(newCalculator()))

	descriptors := r.ListTools()
	require.Len(t, descriptors, 1)
	assert.Equal(t, "calculator", descriptors[0].Name)
	assert.NotEmpty(t, descriptors[0].Parameters)
}

func TestExternalTool_DelegatesToCaller(t *testing.T) {
	called := false
	caller := externalCallerFunc(func(ctx context.Context, name string, args map[string]any) (tool.Result, error) {
		called = true
		return tool.Result{Status: tool.StatusSuccessNoData}, nil
	})
	et := tool.NewExternalTool("remote", "a remote tool", nil, caller)
	result, err := et.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, tool.StatusSuccessNoData, result.Status)
}

type externalCallerFunc func(ctx context.Context, name string, args map[string]any) (tool.Result, error)

func (f externalCallerFunc) CallTool(ctx context.Context, name string, args map[string]any) (tool.Result, error) {
	return f(ctx, name, args)
}
