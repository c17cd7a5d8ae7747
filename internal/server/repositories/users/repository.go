// Package users implements the credential store: durable user records keyed
// by id, unique by email, and indexed by refresh token digest.
//
// All implementations report a missing record as common.ErrorNotFound and a
// uniqueness conflict as common.ErrorAlreadyExists; anything else is an
// infrastructure failure.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error)

	// Update overwrites the mutable fields of an existing user.
	Update(ctx context.Context, user *models.User) error

	// SwapRefreshToken persists user's refresh token fields only if the stored
	// digest still equals oldHash. A lost race yields common.ErrorNotFound.
	SwapRefreshToken(ctx context.Context, user *models.User, oldHash string) error

	// RevokeRefreshToken clears whatever user currently holds hash. It reports
	// whether a token was cleared.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)
}
