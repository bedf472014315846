package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gophguard.v1.GuardService"

// Method names of GuardService.
const (
	MethodPing          = "Ping"
	MethodRegister      = "Register"
	MethodLogin         = "Login"
	MethodRefresh       = "Refresh"
	MethodLogout        = "Logout"
	MethodCheckPassword = "CheckPassword"
	MethodCheckEmail    = "CheckEmail"
	MethodCreateEntry   = "CreateEntry"
	MethodGetEntry      = "GetEntry"
	MethodListEntries   = "ListEntries"
	MethodUpdateEntry   = "UpdateEntry"
	MethodDeleteEntry   = "DeleteEntry"
	MethodExportVault   = "ExportVault"
	MethodListExports   = "ListExports"
)

// FullMethod returns the wire path of a GuardService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// GuardServiceServer is the server API of GuardService. Requests and
// responses are google.protobuf.Struct messages keyed by snake_case field names.
type GuardServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportVault(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListExports(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GuardServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(GuardServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// GuardServiceDesc describes GuardService for grpc.Server.RegisterService.
var GuardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GuardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodPing, GuardServiceServer.Ping),
		unaryMethod(MethodRegister, GuardServiceServer.Register),
		unaryMethod(MethodLogin, GuardServiceServer.Login),
		unaryMethod(MethodRefresh, GuardServiceServer.Refresh),
		unaryMethod(MethodLogout, GuardServiceServer.Logout),
		unaryMethod(MethodCheckPassword, GuardServiceServer.CheckPassword),
		unaryMethod(MethodCheckEmail, GuardServiceServer.CheckEmail),
		unaryMethod(MethodCreateEntry, GuardServiceServer.CreateEntry),
		unaryMethod(MethodGetEntry, GuardServiceServer.GetEntry),
		unaryMethod(MethodListEntries, GuardServiceServer.ListEntries),
		unaryMethod(MethodUpdateEntry, GuardServiceServer.UpdateEntry),
		unaryMethod(MethodDeleteEntry, GuardServiceServer.DeleteEntry),
		unaryMethod(MethodExportVault, GuardServiceServer.ExportVault),
		unaryMethod(MethodListExports, GuardServiceServer.ListExports),
	},
	Streams: []grpc.StreamDesc{},
}

// protectedMethods require a valid access token.
var protectedMethods = map[string]bool{
	FullMethod(MethodLogout):      true,
	FullMethod(MethodCreateEntry): true,
	FullMethod(MethodGetEntry):    true,
	FullMethod(MethodListEntries): true,
	FullMethod(MethodUpdateEntry): true,
	FullMethod(MethodDeleteEntry): true,
	FullMethod(MethodExportVault): true,
	FullMethod(MethodListExports): true,
}
