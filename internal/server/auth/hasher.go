// Package auth implements the credential primitives behind the credential
// service: password hashing and token issuance. Both are exposed as
// interfaces so the scheme can change without touching the service.
package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// PasswordHasher turns a plaintext password into a salted one-way digest and
// checks a candidate against a digest. Hash never returns the same digest
// twice for the same input; the salt travels inside the digest.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	// Verify reports whether password matches digest. A mismatch is
	// (false, nil); an error means the digest itself is unusable.
	Verify(password []byte, digest string) (bool, error)
}

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2ID = "argon2id"
)

// NewPasswordHasher builds the hasher named by scheme.
func NewPasswordHasher(scheme string, bcryptCost int) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case HasherBcrypt, "":
		return NewBcryptHasher(bcryptCost)
	case HasherArgon2ID:
		return NewArgon2Hasher(DefaultArgon2Params), nil
	default:
		return nil, fmt.Errorf("%w: unknown password hasher %q", common.ErrMisconfigured, scheme)
	}
}
