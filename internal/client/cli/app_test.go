package cli

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	servergrpc "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestIsLoggedIn(t *testing.T) {
	app := &App{}
	if app.isLoggedIn() {
		t.Fatalf("expected isLoggedIn() == false without a session")
	}
	app.session = &rpc.Session{}
	if !app.isLoggedIn() {
		t.Fatalf("expected isLoggedIn() == true with a session")
	}
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	app := &App{}
	var buf bytes.Buffer

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&buf)

	app.setMode(ModeOnline)
	if app.Mode != ModeOnline {
		t.Fatalf("expected mode to be %q, got %q", ModeOnline, app.Mode)
	}
	if got := buf.String(); got == "" {
		t.Fatalf("expected log output on mode change, got empty")
	}

	buf.Reset()

	app.setMode(ModeOnline)
	if got := buf.String(); got != "" {
		t.Fatalf("expected no log output when mode doesn't change, got: %q", got)
	}

	app.setMode(ModeOffline)
	if app.Mode != ModeOffline {
		t.Fatalf("expected mode to be %q, got %q", ModeOffline, app.Mode)
	}
}

type fakeHealth struct {
	status healthpb.HealthCheckResponse_ServingStatus
	err    error
}

func (f *fakeHealth) Check(context.Context, *healthpb.HealthCheckRequest, ...grpc.CallOption) (*healthpb.HealthCheckResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &healthpb.HealthCheckResponse{Status: f.status}, nil
}

func TestPing(t *testing.T) {
	cfg := &config.Config{RequestTimeout: time.Second}

	a := &App{config: cfg, health: &fakeHealth{status: healthpb.HealthCheckResponse_SERVING}}
	require.NoError(t, a.ping(context.Background()))

	a.health = &fakeHealth{status: healthpb.HealthCheckResponse_NOT_SERVING}
	require.Error(t, a.ping(context.Background()))

	a.health = &fakeHealth{err: errors.New("down")}
	require.Error(t, a.ping(context.Background()))
}

func TestStartOnlineStatusWatcher_SwitchesMode(t *testing.T) {
	old := log.Default().Writer()
	log.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() { log.SetOutput(old) })

	a := &App{
		config: &config.Config{RequestTimeout: time.Second},
		health: &fakeHealth{status: healthpb.HealthCheckResponse_SERVING},
		Mode:   ModeOffline,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return a.mode() == ModeOnline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestNewApp(t *testing.T) {
	a, err := NewApp(&config.Config{ServerEndpointAddr: "127.0.0.1:1", RequestTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.conn.Close() })

	assert.NotNil(t, a.client)
	assert.Error(t, a.ping(context.Background()))
}

// startServer runs the real credential stack on an in-memory listener.
func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewJWTIssuer(auth.IssuerConfig{Secret: []byte("secret"), AccessTTL: time.Hour})
	require.NoError(t, err)
	us, err := services.NewUserService(repomanager.NewMemoryRepositoryManager(), hasher, issuer,
		services.Config{RefreshTokenTTL: time.Hour, StoreTimeout: time.Second}, logging.Nop{})
	require.NoError(t, err)

	srv := servergrpc.NewGRPCServer("bufnet", logging.Nop{}, us, issuer)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

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
	return conn
}

func TestApp_SessionLifecycle(t *testing.T) {
	conn := startServer(t)

	var out bytes.Buffer
	a := &App{
		config: &config.Config{RequestTimeout: 5 * time.Second},
		client: rpc.NewClient(conn),
		health: healthpb.NewHealthClient(conn),
		out:    &out,
	}
	ctx := context.Background()

	require.NoError(t, a.ping(ctx))

	stubInputs(t, "alice@example.org", []byte("correct horse"))
	require.NoError(t, a.Register(ctx))
	first := a.session.RefreshToken

	require.NoError(t, a.WhoAmI(ctx))
	assert.Contains(t, out.String(), "email:   alice@example.org")

	require.NoError(t, a.Refresh(ctx))
	assert.NotEqual(t, first, a.session.RefreshToken)

	second := a.session.RefreshToken
	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())

	// the revoked token no longer refreshes
	a.session = &rpc.Session{RefreshToken: second}
	require.Error(t, a.Refresh(ctx))
	assert.False(t, a.isLoggedIn())

	stubInputs(t, "alice@example.org", []byte("wrong"))
	require.Error(t, a.Login(ctx))

	stubInputs(t, "alice@example.org", []byte("correct horse"))
	require.NoError(t, a.Login(ctx))
	assert.True(t, a.isLoggedIn())
}
