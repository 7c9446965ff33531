package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "presto.dynamodb.v1.TableStore"

// Full method names
const (
	ListTablesMethod    = "/" + ServiceName + "/ListTables"
	DescribeTableMethod = "/" + ServiceName + "/DescribeTable"
	CreateTableMethod   = "/" + ServiceName + "/CreateTable"
	PutItemMethod       = "/" + ServiceName + "/PutItem"
	ScanMethod          = "/" + ServiceName + "/Scan"
)

// TableStoreServer is the server API of the table store service
type TableStoreServer interface {
	ListTables(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DescribeTable(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	CreateTable(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	PutItem(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Scan(*structpb.Struct, grpc.ServerStream) error
}

var _ TableStoreServer = (*TableStoreService)(nil)

// ScanStreamDesc describes the server streaming Scan method
var ScanStreamDesc = grpc.StreamDesc{
	StreamName:    "Scan",
	Handler:       scanHandler,
	ServerStreams: true,
}

// ServiceDesc is the grpc.ServiceDesc of the table store service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TableStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListTables",
			Handler: unaryHandler(ListTablesMethod, func(srv TableStoreServer, ctx context.Context, req *emptypb.Empty) (interface{}, error) {
				return srv.ListTables(ctx, req)
			}),
		},
		{
			MethodName: "DescribeTable",
			Handler: unaryHandler(DescribeTableMethod, func(srv TableStoreServer, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				return srv.DescribeTable(ctx, req)
			}),
		},
		{
			MethodName: "CreateTable",
			Handler: unaryHandler(CreateTableMethod, func(srv TableStoreServer, ctx context.Context, req *wrapperspb.BytesValue) (interface{}, error) {
				return srv.CreateTable(ctx, req)
			}),
		},
		{
			MethodName: "PutItem",
			Handler: unaryHandler(PutItemMethod, func(srv TableStoreServer, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				return srv.PutItem(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{ScanStreamDesc},
	Metadata: "presto/dynamodb/v1/table_store.proto",
}

type unaryCall[Req any] func(srv TableStoreServer, ctx context.Context, req *Req) (interface{}, error)

func unaryHandler[Req any](fullMethod string, call unaryCall[Req]) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TableStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TableStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func scanHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TableStoreServer).Scan(in, stream)
}
