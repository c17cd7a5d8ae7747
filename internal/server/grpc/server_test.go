package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeService struct {
	session *models.Session
	err     error

	gotEmail, gotPassword, gotToken string
}

func (f *fakeService) Register(_ context.Context, email, password string) (*models.Session, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.session, f.err
}

func (f *fakeService) Login(_ context.Context, email, password string) (*models.Session, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.session, f.err
}

func (f *fakeService) RefreshToken(_ context.Context, token string) (*models.Session, error) {
	f.gotToken = token
	return f.session, f.err
}

func (f *fakeService) Logout(_ context.Context, token string) error {
	f.gotToken = token
	return f.err
}

func newVerifier(t *testing.T) *auth.JWTIssuer {
	t.Helper()
	i, err := auth.NewJWTIssuer(auth.IssuerConfig{Secret: []byte("secret"), AccessTTL: time.Hour})
	require.NoError(t, err)
	return i
}

// startBufconn serves s on an in-memory listener and returns a client for it.
func startBufconn(t *testing.T, s *GRPCServer) (*rpc.Client, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return rpc.NewClient(conn), conn
}

func TestEndToEnd_LoginAndWhoAmI(t *testing.T) {
	verifier := newVerifier(t)
	access, exp, err := verifier.IssueAccessToken(&models.User{ID: "u1", Email: "a@x.com"}, time.Now())
	require.NoError(t, err)

	svc := &fakeService{session: &models.Session{AccessToken: access, AccessTokenExpiresAt: exp, RefreshToken: "r1"}}
	client, _ := startBufconn(t, NewGRPCServer("", logging.Nop{}, svc, verifier))
	ctx := context.Background()

	s, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "r1", s.RefreshToken)
	assert.True(t, s.AccessTokenExpiresAt.Equal(exp))
	assert.Equal(t, "a@x.com", svc.gotEmail)
	assert.Equal(t, "pw", svc.gotPassword)

	id, err := client.WhoAmI(ctx, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, auth.DefaultRole, id.Role)

	_, err = client.WhoAmI(ctx, "garbage")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	require.NoError(t, client.Logout(ctx, "r1"))
	assert.Equal(t, "r1", svc.gotToken)
}

func TestEndToEnd_ErrorsRoundTrip(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrEmailTaken, codes.AlreadyExists},
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrInvalidOrExpiredRefreshToken, codes.Unauthenticated},
		{common.ErrInvalidInput, codes.InvalidArgument},
		{common.ErrUnavailable, codes.Unavailable},
		{common.ErrorInternal, codes.Internal},
	}

	svc := &fakeService{}
	client, _ := startBufconn(t, NewGRPCServer("", logging.Nop{}, svc, newVerifier(t)))

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc.err = tt.err
			_, err := client.RefreshToken(context.Background(), "tok")
			assert.Equal(t, tt.code, status.Code(err))
			assert.ErrorIs(t, rpc.FromStatus(err), tt.err)
		})
	}
}

func TestHealth_Serving(t *testing.T) {
	_, conn := startBufconn(t, NewGRPCServer("", logging.Nop{}, &fakeService{}, newVerifier(t)))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeService{}, newVerifier(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeService{}, newVerifier(t))

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
