// Package services contains server-side business logic. This file implements
// UserService, which registers users, logs them in, and issues and rotates
// their access/refresh token sessions.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Config carries the service's tunables.
type Config struct {
	RefreshTokenTTL time.Duration
	// StoreTimeout bounds every store call; exceeding it yields ErrUnavailable.
	StoreTimeout time.Duration
	// EmailCaseInsensitive lowercases and trims emails before they reach the store.
	EmailCaseInsensitive bool
}

type Option func(*UserService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

// UserService provides authentication-related operations:
// - Register: create a user and open its first session
// - Login: verify credentials and mint a new session
// - RefreshToken: rotate the refresh token and mint a new access token
// - Logout: drop the stored refresh token
//
// Every error it returns matches exactly one of the common service errors.
type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	issuer      auth.TokenIssuer
	cfg         Config
	log         logging.Logger
	now         func() time.Time

	// dummyDigest is verified against when the email is unknown so both
	// login failures cost the same.
	dummyDigest string
}

// NewUserService validates its dependencies; a missing one yields
// common.ErrMisconfigured.
func NewUserService(m repomanager.RepositoryManager, hasher auth.PasswordHasher, issuer auth.TokenIssuer,
	cfg Config, log logging.Logger, opts ...Option) (*UserService, error) {

	switch {
	case m == nil:
		return nil, fmt.Errorf("%w: repository manager is required", common.ErrMisconfigured)
	case hasher == nil:
		return nil, fmt.Errorf("%w: password hasher is required", common.ErrMisconfigured)
	case issuer == nil:
		return nil, fmt.Errorf("%w: token issuer is required", common.ErrMisconfigured)
	case cfg.RefreshTokenTTL <= 0:
		return nil, fmt.Errorf("%w: refresh token ttl must be positive", common.ErrMisconfigured)
	case cfg.StoreTimeout <= 0:
		return nil, fmt.Errorf("%w: store timeout must be positive", common.ErrMisconfigured)
	}
	if log == nil {
		log = logging.Nop{}
	}

	s := &UserService{
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		cfg:         cfg,
		log:         log.With("module", "user_service"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	filler, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy digest: %w", err)
	}
	if s.dummyDigest, err = hasher.Hash([]byte(filler)); err != nil {
		return nil, fmt.Errorf("dummy digest: %w", err)
	}
	return s, nil
}

// Register creates a user for email and returns its first session. The user
// record and its refresh token are written in one transaction.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.Session, error) {
	email = s.normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrInvalidInput
	}

	_, err := s.findByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrEmailTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.storeFailure(ctx, "register: lookup", err)
	}

	digest, err := s.hasher.Hash([]byte(password))
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, common.ErrInvalidInput
		}
		return nil, s.internalFailure(ctx, "register: hash password", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	session, refreshHash, err := s.newSession(user, now)
	if err != nil {
		return nil, s.internalFailure(ctx, "register: issue tokens", err)
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	err = s.repomanager.WithTx(sctx, func(ctx context.Context, repo users.Repository) error {
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		user.SetRefreshToken(refreshHash, session.RefreshTokenExpiresAt)
		return repo.Update(ctx, user)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrEmailTaken
		}
		return nil, s.storeFailure(ctx, "register: persist", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return session, nil
}

// Login verifies email and password and replaces the user's refresh token
// with a new one. Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = s.normalizeEmail(email)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify([]byte(password), s.dummyDigest)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.storeFailure(ctx, "login: lookup", err)
	}

	ok, err := s.hasher.Verify([]byte(password), user.PasswordHash)
	if err != nil {
		return nil, s.internalFailure(ctx, "login: verify password", err, "user_id", user.ID)
	}
	if !ok {
		s.log.Debug(ctx, "login rejected", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	now := s.now()
	session, refreshHash, err := s.newSession(user, now)
	if err != nil {
		return nil, s.internalFailure(ctx, "login: issue tokens", err)
	}
	user.SetRefreshToken(refreshHash, session.RefreshTokenExpiresAt)
	user.UpdatedAt = now

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.repomanager.Users().Update(sctx, user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.storeFailure(ctx, "login: persist", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return session, nil
}

// RefreshToken exchanges a valid refresh token for a new session. The
// presented token stops working on success; when two callers present the same
// token only one of them wins.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidOrExpiredRefreshToken
	}
	presentedHash := auth.HashRefreshToken(refreshToken)

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	user, err := s.repomanager.Users().GetUserByRefreshTokenHash(sctx, presentedHash)
	cancel()
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredRefreshToken
		}
		return nil, s.storeFailure(ctx, "refresh: lookup", err)
	}

	now := s.now()
	if !user.RefreshTokenUsableAt(now) {
		s.log.Debug(ctx, "refresh token expired", "user_id", user.ID)
		return nil, common.ErrInvalidOrExpiredRefreshToken
	}

	session, refreshHash, err := s.newSession(user, now)
	if err != nil {
		return nil, s.internalFailure(ctx, "refresh: issue tokens", err)
	}
	next := *user
	next.SetRefreshToken(refreshHash, session.RefreshTokenExpiresAt)
	next.UpdatedAt = now

	sctx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.repomanager.Users().SwapRefreshToken(sctx, &next, presentedHash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "refresh token already rotated", "user_id", user.ID)
			return nil, common.ErrInvalidOrExpiredRefreshToken
		}
		return nil, s.storeFailure(ctx, "refresh: persist", err)
	}

	s.log.Debug(ctx, "refresh token rotated", "user_id", user.ID)
	return session, nil
}

// Logout clears the stored refresh token matching refreshToken. Unknown or
// empty tokens succeed without effect.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	revoked, err := s.repomanager.Users().RevokeRefreshToken(sctx, auth.HashRefreshToken(refreshToken), s.now())
	if err != nil {
		return s.storeFailure(ctx, "logout", err)
	}
	if revoked {
		s.log.Debug(ctx, "refresh token revoked")
	}
	return nil
}

// --- helpers below ---

func (s *UserService) normalizeEmail(email string) string {
	if s.cfg.EmailCaseInsensitive {
		return strings.ToLower(strings.TrimSpace(email))
	}
	return email
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.repomanager.Users().GetUserByEmail(sctx, email)
}

// newSession issues both tokens for user. It returns the refresh token digest
// to be stored alongside the session.
func (s *UserService) newSession(user *models.User, now time.Time) (*models.Session, string, error) {
	access, accessExp, err := s.issuer.IssueAccessToken(user, now)
	if err != nil {
		return nil, "", err
	}
	refresh, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return nil, "", err
	}
	return &models.Session{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}, auth.HashRefreshToken(refresh), nil
}

func (s *UserService) storeFailure(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s", common.ErrUnavailable, op)
}

func (s *UserService) internalFailure(ctx context.Context, op string, err error, args ...any) error {
	s.log.Error(ctx, "internal failure", append([]any{"op", op, "error", err}, args...)...)
	return fmt.Errorf("%w: %s", common.ErrorInternal, op)
}
