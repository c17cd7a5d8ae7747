package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "gophauth.v1.CredentialService"

const (
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodLogout       = "/" + ServiceName + "/Logout"
	MethodWhoAmI       = "/" + ServiceName + "/WhoAmI"
)

// CredentialServiceServer is implemented by the gRPC transport.
type CredentialServiceServer interface {
	Register(context.Context, *Credentials) (*Session, error)
	Login(context.Context, *Credentials) (*Session, error)
	RefreshToken(context.Context, *RefreshRequest) (*Session, error)
	Logout(context.Context, *RefreshRequest) (*emptypb.Empty, error)
	// WhoAmI requires an access token in the request metadata.
	WhoAmI(context.Context, *emptypb.Empty) (*Identity, error)
}

func RegisterCredentialServiceServer(s grpc.ServiceRegistrar, srv CredentialServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CredentialServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", CredentialServiceServer.Register),
		unary("Login", CredentialServiceServer.Login),
		unary("RefreshToken", CredentialServiceServer.RefreshToken),
		unary("Logout", CredentialServiceServer.Logout),
		unary("WhoAmI", CredentialServiceServer.WhoAmI),
	},
}

func unary[Req, Resp any](name string, call func(CredentialServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CredentialServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CredentialServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
