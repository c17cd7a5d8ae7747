package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

func (s *GRPCServer) Register(ctx context.Context, req *rpc.Credentials) (*rpc.Session, error) {

	session, err := s.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return toSession(session), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.Credentials) (*rpc.Session, error) {

	session, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return toSession(session), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshRequest) (*rpc.Session, error) {

	session, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return toSession(session), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *rpc.RefreshRequest) (*emptypb.Empty, error) {

	if err := s.users.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}

	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*rpc.Identity, error) {

	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id := &rpc.Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func toSession(s *models.Session) *rpc.Session {
	return &rpc.Session{
		AccessToken:           s.AccessToken,
		AccessTokenExpiresAt:  s.AccessTokenExpiresAt,
		RefreshToken:          s.RefreshToken,
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt,
	}
}

// toStatus maps service errors to gRPC codes. Messages are fixed strings so
// no internal detail reaches the caller.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrEmailTaken):
		return status.Error(codes.AlreadyExists, common.ErrEmailTaken.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrInvalidOrExpiredRefreshToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidOrExpiredRefreshToken.Error())
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, common.ErrInvalidInput.Error())
	case errors.Is(err, common.ErrUnavailable):
		return status.Error(codes.Unavailable, common.ErrUnavailable.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}
