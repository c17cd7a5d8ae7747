// Package grpc exposes the credential service over gRPC using the contract in
// internal/rpc. It also serves the standard health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CredentialService is the part of services.UserService the transport uses.
type CredentialService interface {
	Register(ctx context.Context, email, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, refreshToken string) error
}

type GRPCServer struct {
	address  string
	users    CredentialService
	verifier auth.AccessTokenVerifier
	logger   logging.Logger
}

var _ rpc.CredentialServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us CredentialService, verifier auth.AccessTokenVerifier) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		verifier: verifier,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	)

	rpc.RegisterCredentialServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
