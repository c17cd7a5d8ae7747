package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestRegister_MapsSession(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	svc := &fakeService{session: &models.Session{
		AccessToken: "a", AccessTokenExpiresAt: exp, RefreshToken: "r", RefreshTokenExpiresAt: exp.Add(time.Hour),
	}}
	s := NewGRPCServer("", logging.Nop{}, svc, newVerifier(t))

	got, err := s.Register(context.Background(), &rpc.Credentials{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.Equal(t, exp.Add(time.Hour), got.RefreshTokenExpiresAt)
}

func TestRegister_EmailTaken(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeService{err: common.ErrEmailTaken}, newVerifier(t))

	_, err := s.Register(context.Background(), &rpc.Credentials{Email: "a@x.com", Password: "pw"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestToStatus_HidesInternalDetail(t *testing.T) {
	err := toStatus(errors.New("pq: password authentication failed for user admin"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), "admin")
}

func TestWhoAmI_WithoutClaims(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeService{}, newVerifier(t))

	_, err := s.WhoAmI(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
