package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher uses bcrypt.DefaultCost when cost is 0.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range [%d, %d]",
			common.ErrMisconfigured, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(password []byte) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(password, h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", common.ErrInvalidInput)
		}
		return "", err
	}
	return string(digest), nil
}

// Verify relies on bcrypt.CompareHashAndPassword, which compares in constant
// time after rehashing with the embedded salt.
func (h *BcryptHasher) Verify(password []byte, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, err
	}
}
