package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Messages are protobuf well-known types, so no generated code is needed.
const (
	ServiceName = "marketstream.control.v1.StreamControl"

	listSessionsMethod = "/" + ServiceName + "/ListSessions"
	closeSessionMethod = "/" + ServiceName + "/CloseSession"
	getStatusMethod    = "/" + ServiceName + "/GetStatus"
)

// StreamControlServer is the operator-facing control plane.
type StreamControlServer interface {
	// ListSessions returns {"sessions": [...]} with one entry per live session.
	ListSessions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// CloseSession closes the session whose connection id is given.
	CloseSession(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	// GetStatus reports service-level counters.
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------
// Server side
// -----------------------------------------------------------------------------

var StreamControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StreamControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: listSessionsHandler},
		{MethodName: "CloseSession", Handler: closeSessionHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "market_stream_control",
}

func RegisterStreamControlServer(s grpc.ServiceRegistrar, srv StreamControlServer) {
	s.RegisterService(&StreamControlServiceDesc, srv)
}

func listSessionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listSessionsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).ListSessions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func closeSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).CloseSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: closeSessionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).CloseSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client side
// -----------------------------------------------------------------------------

type StreamControlClient struct {
	cc grpc.ClientConnInterface
}

func NewStreamControlClient(cc grpc.ClientConnInterface) *StreamControlClient {
	return &StreamControlClient{cc: cc}
}

func (c *StreamControlClient) ListSessions(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listSessionsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StreamControlClient) CloseSession(ctx context.Context, connID string, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, closeSessionMethod, wrapperspb.String(connID), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *StreamControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
