package rpcservice

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// ServiceName is the fully-qualified gRPC service name, used as the
// first path segment of every RPC's method string.
const ServiceName = "accessgraph.TenantService"

// Handler is implemented by a tenant backend process to answer the two
// RPCs the gateway issues.
type Handler interface {
	ExecuteCommand(ctx context.Context, req *wire.CommandRequest) (*wire.CommandResponse, error)
	HealthCheck(ctx context.Context, req *wire.HealthRequest) (*wire.HealthResponse, error)
}

func executeCommandHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).ExecuteCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ExecuteCommand"}
	wrapped := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Handler).ExecuteCommand(ctx, req.(*wire.CommandRequest))
	}
	return interceptor(ctx, in, info, wrapped)
}

func healthCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/HealthCheck"}
	wrapped := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Handler).HealthCheck(ctx, req.(*wire.HealthRequest))
	}
	return interceptor(ctx, in, info, wrapped)
}

// ServiceDesc is registered against a *grpc.Server in place of the
// generated descriptor a .proto/protoc-gen-go-grpc pipeline would
// normally produce.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteCommand", Handler: executeCommandHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accessgraph/rpcservice.proto",
}

// RegisterServer wires h into s under ServiceDesc.
func RegisterServer(s *grpc.Server, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
