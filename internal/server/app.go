// Package server wires the credential service together: store, hasher,
// token issuer, and the gRPC and HTTP transports. It handles graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/telemetry"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const serviceName = "gophauth"

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	issuer      *auth.JWTIssuer
	userService *services.UserService
	telemetry   telemetry.Shutdown
}

// NewApp validates c, opens and migrates the store and builds the service.
// Any misconfiguration is reported here rather than per request.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, err
	}

	hasher, err := auth.NewPasswordHasher(c.PasswordHasher, c.BcryptCost)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewJWTIssuer(auth.IssuerConfig{
		Secret:    []byte(c.SecretKey),
		Algorithm: c.SigningAlgorithm,
		Issuer:    c.TokenIssuer,
		AccessTTL: c.AccessTokenValidityDuration,
	})
	if err != nil {
		return nil, err
	}

	rm, err := repomanager.Open(ctx, repomanager.Options{
		Adapter:    c.StoreAdapter,
		DSN:        c.DatabaseDSN,
		SQLitePath: c.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us, err := services.NewUserService(rm, hasher, issuer, services.Config{
		RefreshTokenTTL:      c.RefreshTokenValidityDuration,
		StoreTimeout:         c.StoreTimeout,
		EmailCaseInsensitive: c.EmailCaseInsensitive,
	}, logger)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		issuer:      issuer,
		userService: us,
		telemetry:   shutdown,
	}, nil
}

// Run starts the configured transports and blocks until ctx is done, a
// termination signal arrives or a transport fails.
func (app *App) Run(ctx context.Context) error {

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreAdapter)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	if app.config.EndpointAddrGRPC != "" {
		start("grpc", gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.issuer).Run)
	}
	if app.config.EndpointAddrHTTP != "" {
		start("http", httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.issuer, app.readiness()).Run)
	}

	wg.Wait()
	app.close()
	return firstErr
}

func (app *App) readiness() httpapi.ReadyFunc {
	db, ok := app.repomanager.(interface{ DB() *sql.DB })
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	}
}

func (app *App) close() {
	ctx := context.Background()
	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	if err := app.telemetry(ctx); err != nil {
		app.logger.Error(ctx, "telemetry shutdown", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
