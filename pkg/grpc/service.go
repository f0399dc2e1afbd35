package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The admin service is described with well-known types only, so it needs no
// generated code. Structs carry the same JSON documents as the REST API.
const ServiceName = "relay.v1.RelayAdmin"

const (
	MethodGetSnapshot   = "/" + ServiceName + "/GetSnapshot"
	MethodGetStatus     = "/" + ServiceName + "/GetStatus"
	MethodManualControl = "/" + ServiceName + "/ManualControl"
	MethodReconcile     = "/" + ServiceName + "/Reconcile"
	MethodListDevices   = "/" + ServiceName + "/ListDevices"
	MethodPostLimiter   = "/" + ServiceName + "/PostLimiter"
)

type RelayAdminServer interface {
	GetSnapshot(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ManualControl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Reconcile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListDevices(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler[Req proto.Message](
	method string,
	newReq func() Req,
	call func(RelayAdminServer, context.Context, Req) (*structpb.Struct, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayAdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RelayAdminServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newStringValue() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newStruct() *structpb.Struct             { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty                { return new(emptypb.Empty) }

var RelayAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSnapshot", Handler: unaryHandler(MethodGetSnapshot, newStringValue, RelayAdminServer.GetSnapshot)},
		{MethodName: "GetStatus", Handler: unaryHandler(MethodGetStatus, newStringValue, RelayAdminServer.GetStatus)},
		{MethodName: "ManualControl", Handler: unaryHandler(MethodManualControl, newStruct, RelayAdminServer.ManualControl)},
		{MethodName: "Reconcile", Handler: unaryHandler(MethodReconcile, newStringValue, RelayAdminServer.Reconcile)},
		{MethodName: "ListDevices", Handler: unaryHandler(MethodListDevices, newEmpty, RelayAdminServer.ListDevices)},
		{MethodName: "PostLimiter", Handler: unaryHandler(MethodPostLimiter, newStruct, RelayAdminServer.PostLimiter)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay_admin",
}

func RegisterRelayAdminServer(s grpc.ServiceRegistrar, srv RelayAdminServer) {
	s.RegisterService(&RelayAdminServiceDesc, srv)
}

// RelayAdminClient is the client side of the admin service.
type RelayAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayAdminClient(cc grpc.ClientConnInterface) *RelayAdminClient {
	return &RelayAdminClient{cc: cc}
}

func (c *RelayAdminClient) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RelayAdminClient) GetSnapshot(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetSnapshot, wrapperspb.String(deviceID), opts...)
}

func (c *RelayAdminClient) GetStatus(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetStatus, wrapperspb.String(deviceID), opts...)
}

func (c *RelayAdminClient) ManualControl(ctx context.Context, deviceID string, action string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"deviceId": deviceID, "action": action})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodManualControl, in, opts...)
}

func (c *RelayAdminClient) Reconcile(ctx context.Context, deviceID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodReconcile, wrapperspb.String(deviceID), opts...)
}

func (c *RelayAdminClient) ListDevices(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListDevices, &emptypb.Empty{}, opts...)
}

func (c *RelayAdminClient) PostLimiter(ctx context.Context, deviceID string, deviceRate float64, deviceBurst int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"deviceId": deviceID, "rate": deviceRate, "burst": deviceBurst})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodPostLimiter, in, opts...)
}
