package envserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "droplet.env.v1.EnvironmentService"

const (
	CreateEnvFullMethodName = "/" + ServiceName + "/CreateEnv"
	ResetFullMethodName     = "/" + ServiceName + "/Reset"
	StepFullMethodName      = "/" + ServiceName + "/Step"
	CloseEnvFullMethodName  = "/" + ServiceName + "/CloseEnv"

	SampleExperiencesFullMethodName = "/" + ServiceName + "/SampleExperiences"
	ReadExperiencesFullMethodName   = "/" + ServiceName + "/ReadExperiences"
)

// EnvironmentServiceServer is the server API. Every request and response
// is a google.protobuf.Struct so Python clients need no generated stubs.
type EnvironmentServiceServer interface {
	CreateEnv(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseEnv(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SampleExperiences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadExperiences(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(EnvironmentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EnvironmentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EnvironmentServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// EnvironmentService_ServiceDesc describes the service for grpc.Server
var EnvironmentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EnvironmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateEnv",
			Handler:    unaryHandler(CreateEnvFullMethodName, EnvironmentServiceServer.CreateEnv),
		},
		{
			MethodName: "Reset",
			Handler:    unaryHandler(ResetFullMethodName, EnvironmentServiceServer.Reset),
		},
		{
			MethodName: "Step",
			Handler:    unaryHandler(StepFullMethodName, EnvironmentServiceServer.Step),
		},
		{
			MethodName: "CloseEnv",
			Handler:    unaryHandler(CloseEnvFullMethodName, EnvironmentServiceServer.CloseEnv),
		},
		{
			MethodName: "SampleExperiences",
			Handler:    unaryHandler(SampleExperiencesFullMethodName, EnvironmentServiceServer.SampleExperiences),
		},
		{
			MethodName: "ReadExperiences",
			Handler:    unaryHandler(ReadExperiencesFullMethodName, EnvironmentServiceServer.ReadExperiences),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "droplet/env/v1/env.proto",
}

// RegisterEnvironmentServiceServer registers srv with s
func RegisterEnvironmentServiceServer(s grpc.ServiceRegistrar, srv EnvironmentServiceServer) {
	s.RegisterService(&EnvironmentService_ServiceDesc, srv)
}

// EnvironmentServiceClient calls the service over a client connection
type EnvironmentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEnvironmentServiceClient wraps a connection
func NewEnvironmentServiceClient(cc grpc.ClientConnInterface) *EnvironmentServiceClient {
	return &EnvironmentServiceClient{cc: cc}
}

func (c *EnvironmentServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EnvironmentServiceClient) CreateEnv(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CreateEnvFullMethodName, in, opts...)
}

func (c *EnvironmentServiceClient) Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResetFullMethodName, in, opts...)
}

func (c *EnvironmentServiceClient) Step(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, StepFullMethodName, in, opts...)
}

func (c *EnvironmentServiceClient) CloseEnv(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, CloseEnvFullMethodName, in, opts...)
}

func (c *EnvironmentServiceClient) SampleExperiences(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SampleExperiencesFullMethodName, in, opts...)
}

func (c *EnvironmentServiceClient) ReadExperiences(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ReadExperiencesFullMethodName, in, opts...)
}
