package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages are well-known protobuf types (Struct / Empty), so the service
// needs no generated code: the descriptor below is what protoc-gen-go-grpc
// would emit for
//
//	service RelayControl {
//	  rpc GetStatus(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc ListSources(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc StartSource(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc StopSource(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc QuerySeries(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc QueryLatestTick(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc SubmitRecord(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}

const ServiceName = "candlerelay.control.v1.RelayControl"

// RelayControlServer is the server API for the RelayControl service.
type RelayControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StartSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuerySeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryLatestTick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRelayControlServer attaches srv to a gRPC server.
func RegisterRelayControlServer(s grpc.ServiceRegistrar, srv RelayControlServer) {
	s.RegisterService(&RelayControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func emptyHandler(method string, call func(RelayControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RelayControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RelayControlServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func structHandler(method string, call func(RelayControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RelayControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RelayControlServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RelayControl_ServiceDesc is the grpc.ServiceDesc for the RelayControl service.
var RelayControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayControlServer)(nil),
	Methods: []grpc.MethodDesc{
		emptyHandler("GetStatus", RelayControlServer.GetStatus),
		emptyHandler("ListSources", RelayControlServer.ListSources),
		structHandler("StartSource", RelayControlServer.StartSource),
		structHandler("StopSource", RelayControlServer.StopSource),
		structHandler("QuerySeries", RelayControlServer.QuerySeries),
		structHandler("QueryLatestTick", RelayControlServer.QueryLatestTick),
		structHandler("SubmitRecord", RelayControlServer.SubmitRecord),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay_control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type RelayControlClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayControlClient(cc grpc.ClientConnInterface) *RelayControlClient {
	return &RelayControlClient{cc: cc}
}

func (c *RelayControlClient) call(ctx context.Context, method string, in interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RelayControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetStatus", &emptypb.Empty{}, opts...)
}

func (c *RelayControlClient) ListSources(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ListSources", &emptypb.Empty{}, opts...)
}

func (c *RelayControlClient) StartSource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "StartSource", in, opts...)
}

func (c *RelayControlClient) StopSource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "StopSource", in, opts...)
}

func (c *RelayControlClient) QuerySeries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "QuerySeries", in, opts...)
}

func (c *RelayControlClient) QueryLatestTick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "QueryLatestTick", in, opts...)
}

func (c *RelayControlClient) SubmitRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "SubmitRecord", in, opts...)
}
