package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// credentialClient is the subset of rpc.Client the commands use.
type credentialClient interface {
	Register(ctx context.Context, email, password string) (*rpc.Session, error)
	Login(ctx context.Context, email, password string) (*rpc.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*rpc.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	WhoAmI(ctx context.Context, accessToken string) (*rpc.Identity, error)
}

type healthChecker interface {
	Check(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (*healthpb.HealthCheckResponse, error)
}

type App struct {
	config  *config.Config
	client  credentialClient
	health  healthChecker
	conn    io.Closer
	reader  *bufio.Reader
	out     io.Writer
	mu      sync.Mutex
	email   string
	session *rpc.Session
	Mode    Mode
}

// NewApp prepares a client connection to c.ServerEndpointAddr. The
// connection is established lazily on the first call.
func NewApp(c *config.Config) (*App, error) {
	conn, err := grpc.NewClient(c.ServerEndpointAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.ServerEndpointAddr, err)
	}

	return &App{
		config: c,
		client: rpc.NewClient(conn),
		health: healthpb.NewHealthClient(conn),
		conn:   conn,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// Run starts the watcher and the REPL and closes the connection when the
// user leaves.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.conn != nil {
			_ = a.conn.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	resp, err := a.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service status %s", resp.GetStatus())
	}
	return nil
}

// StartOnlineStatusWatcher probes the server every interval until ctx is
// done, switching Mode on each change.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.ping(ctx); err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}
		case <-ctx.Done():
			return
		}
	}
}
