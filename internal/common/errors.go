// Package common defines sentinel errors and small helpers shared by the
// server, the transports and the CLI client. Callers match errors with
// errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Credential service outcomes. Every failure a caller can observe is one
	// of these.
	ErrEmailTaken                   = errors.New("email already registered")
	ErrInvalidCredentials           = errors.New("invalid email or password")
	ErrInvalidOrExpiredRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidInput                 = errors.New("invalid input")
	ErrUnavailable                  = errors.New("service unavailable")
	ErrorInternal                   = errors.New("internal error")

	// Startup errors.
	ErrMisconfigured = errors.New("misconfigured")

	// Access token verification errors (transport side).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
