package grpc

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/api"
	"google.golang.org/grpc"
)

// unary adapts a typed handler method to a grpc.MethodDesc. Messages are
// decoded by whatever codec the call negotiated (api.Codec in practice).
func unary[Req, Resp any](name string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodLogin, (*GRPCServer).Login),
		unary(api.MethodCreateUser, (*GRPCServer).CreateUser),
		unary(api.MethodResetPassword, (*GRPCServer).ResetPassword),
		unary(api.MethodChangePassword, (*GRPCServer).ChangePassword),
		unary(api.MethodRecoveryKey, (*GRPCServer).RecoveryKey),
		unary(api.MethodLogout, (*GRPCServer).Logout),
		unary(api.MethodListFiles, (*GRPCServer).ListFiles),
		unary(api.MethodUploadFile, (*GRPCServer).UploadFile),
		unary(api.MethodRetrieveFile, (*GRPCServer).RetrieveFile),
		unary(api.MethodDeleteFile, (*GRPCServer).DeleteFile),
		unary(api.MethodShareFile, (*GRPCServer).ShareFile),
		unary(api.MethodUnshareFile, (*GRPCServer).UnshareFile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filevault/v1",
}
