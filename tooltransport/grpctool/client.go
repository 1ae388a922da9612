package grpctool

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/tsharp/agent-runtime/rterrors"
	"github.com/tsharp/agent-runtime/tool"
)

// Client talks to a remote ToolService over an existing *grpc.ClientConn,
// implementing tool.ExternalCaller so its tools plug into the Agent loop
// exactly like a NativeTool (spec §4.4 "An External Tool wraps a client to
// an out-of-process tool server").
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps cc. Callers own cc's lifecycle (dial options, TLS,
// closing).
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

// ListTools calls the remote ListTools RPC and returns the tool descriptors
// in the shape tool.Registry.ListTools would produce locally.
func (c *Client) ListTools(ctx context.Context) ([]tool.FunctionDescriptor, error) {
	var resp ListToolsResponse
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListTools", &ListToolsRequest{}, &resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, rterrors.Wrap(rterrors.KindTool, "grpctool.list_tools", err, "ListTools RPC failed")
	}
	out := make([]tool.FunctionDescriptor, 0, len(resp.Tools))
	for _, d := range resp.Tools {
		out = append(out, tool.FunctionDescriptor{Name: d.Name, Description: d.Description, Parameters: d.InputSchema})
	}
	return out, nil
}

// CallTool implements tool.ExternalCaller.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (tool.Result, error) {
	argBytes, err := json.Marshal(arguments)
	if err != nil {
		return tool.Result{}, rterrors.Wrap(rterrors.KindTool, "grpctool.call_tool", err, "failed to marshal arguments for tool "+name)
	}

	var resp CallToolResponse
	req := &CallToolRequest{Name: name, Arguments: argBytes}
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CallTool", req, &resp, grpc.CallContentSubtype(codecName)); err != nil {
		return tool.Result{}, rterrors.Wrap(rterrors.KindTool, "grpctool.call_tool", err, "CallTool RPC failed for tool "+name).
			WithToolReason(rterrors.ToolReasonExternalCall)
	}

	return tool.Result{
		Output:     resp.Output,
		DurationMS: resp.DurationMS,
		Status:     tool.ResultStatus(resp.Status),
		Message:    resp.Message,
	}, nil
}
