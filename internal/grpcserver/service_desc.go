package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchingServer is the server API of MatchingService. Every message is a
// google.protobuf.Struct, so no generated stubs are needed.
type MatchingServer interface {
	RunIngestion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HydrateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateJobMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BatchScoring(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoveJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(MatchingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call rpc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MatchingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(MatchingServer), ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunIngestion", Handler: handler("RunIngestion", MatchingServer.RunIngestion)},
		{MethodName: "HydrateJob", Handler: handler("HydrateJob", MatchingServer.HydrateJob)},
		{MethodName: "CalculateJobMatch", Handler: handler("CalculateJobMatch", MatchingServer.CalculateJobMatch)},
		{MethodName: "BatchScoring", Handler: handler("BatchScoring", MatchingServer.BatchScoring)},
		{MethodName: "GetProgress", Handler: handler("GetProgress", MatchingServer.GetProgress)},
		{MethodName: "MoveJob", Handler: handler("MoveJob", MatchingServer.MoveJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobmate/matching/v1/matching.proto",
}

// Register mounts srv on s.
func Register(s grpc.ServiceRegistrar, srv MatchingServer) {
	s.RegisterService(&serviceDesc, srv)
}
