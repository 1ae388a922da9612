package grpctool

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tsharp/agent-runtime/tool"
)

// serviceName is the fully-qualified gRPC service name both server
// registration and client Invoke calls address.
const serviceName = "agentrt.tooltransport.ToolService"

// server adapts a tool.Registry to the hand-rolled ListTools/CallTool RPCs.
type server struct {
	registry *tool.Registry
}

// Register mounts registry as the ToolService on s, so it can be served
// over any grpc.Server listener (spec §4.4 "the contract is identical from
// the Agent's perspective" — the registry on the other side of the wire is
// the same Registry type used in-process).
func Register(s *grpc.Server, registry *tool.Registry) {
	s.RegisterService(&serviceDesc, &server{registry: registry})
}

// serviceDesc is written by hand instead of generated by protoc; HandlerType
// is the empty interface so grpc-go's implements-check at RegisterService
// time is trivially satisfied by any server struct.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTools", Handler: listToolsHandler},
		{MethodName: "CallTool", Handler: callToolHandler},
	},
}

func listToolsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var req ListToolsRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	s := srv.(*server)
	handler := func(ctx context.Context, req any) (any, error) {
		return s.listTools(ctx)
	}
	if interceptor == nil {
		return handler(ctx, &req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListTools"}
	return interceptor(ctx, &req, info, handler)
}

func callToolHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var req CallToolRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	s := srv.(*server)
	handler := func(ctx context.Context, req any) (any, error) {
		return s.callTool(ctx, req.(*CallToolRequest))
	}
	if interceptor == nil {
		return handler(ctx, &req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CallTool"}
	return interceptor(ctx, &req, info, handler)
}

func (s *server) listTools(ctx context.Context) (*ListToolsResponse, error) {
	descs := s.registry.ListTools()
	out := make([]ToolDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolDescriptor{Name: d.Name, Description: d.Description, InputSchema: d.Parameters})
	}
	return &ListToolsResponse{Tools: out}, nil
}

func (s *server) callTool(ctx context.Context, req *CallToolRequest) (*CallToolResponse, error) {
	var args map[string]any
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid arguments for tool %s: %v", req.Name, err)
		}
	}
	result, err := s.registry.CallTool(ctx, req.Name, args)
	if err != nil {
		return nil, status.Errorf(codes.Unknown, "%v", err)
	}
	return &CallToolResponse{
		Output:     result.Output,
		DurationMS: result.DurationMS,
		Status:     string(result.Status),
		Message:    result.Message,
	}, nil
}
