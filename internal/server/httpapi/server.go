// Package httpapi exposes the credential service as a JSON HTTP API routed
// with gorilla/mux.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/gorilla/mux"
)

// CredentialService is the part of services.UserService the API uses.
type CredentialService interface {
	Register(ctx context.Context, email, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, refreshToken string) error
}

// ReadyFunc reports whether the store is reachable.
type ReadyFunc func(ctx context.Context) error

type Server struct {
	address  string
	users    CredentialService
	verifier auth.AccessTokenVerifier
	ready    ReadyFunc
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, us CredentialService, verifier auth.AccessTokenVerifier, ready ReadyFunc) *Server {
	return &Server{
		address:  address,
		users:    us,
		verifier: verifier,
		ready:    ready,
		logger:   l.With("module", "http_server"),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(securityHeaders)
	r.Use(s.logging)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.Handle("/api/auth/me", s.requireAccessToken(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = securityHeaders(http.HandlerFunc(methodNotAllowed))
	r.NotFoundHandler = securityHeaders(http.HandlerFunc(notFound))

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
