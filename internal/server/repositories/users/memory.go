package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository keeps users in process memory. It is safe for concurrent
// use and enforces the same uniqueness rules as the SQL stores.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]models.User // by id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]models.User)}
}

// Snapshot returns an independent copy of the repository.
func (r *MemoryRepository) Snapshot() *MemoryRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := make(map[string]models.User, len(r.users))
	for k, v := range r.users {
		cp[k] = v
	}
	return &MemoryRepository{users: cp}
}

// Replace swaps in the contents of other.
func (r *MemoryRepository) Replace(other *MemoryRepository) {
	other.mu.RLock()
	users := other.users
	other.mu.RUnlock()

	r.mu.Lock()
	r.users = users
	r.mu.Unlock()
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return common.ErrorAlreadyExists
	}
	if r.conflicts(user) {
		return common.ErrorAlreadyExists
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id })
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) GetUserByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(ctx, func(u *models.User) bool { return u.RefreshTokenHash == hash })
}

func (r *MemoryRepository) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[user.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.conflicts(user) {
		return common.ErrorAlreadyExists
	}
	cur.Email = user.Email
	cur.PasswordHash = user.PasswordHash
	cur.RefreshTokenHash = user.RefreshTokenHash
	cur.RefreshTokenExpiresAt = user.RefreshTokenExpiresAt
	cur.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = cur
	return nil
}

func (r *MemoryRepository) SwapRefreshToken(ctx context.Context, user *models.User, oldHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[user.ID]
	if !ok || oldHash == "" || cur.RefreshTokenHash != oldHash {
		return common.ErrorNotFound
	}
	if r.conflicts(user) {
		return common.ErrorAlreadyExists
	}
	cur.RefreshTokenHash = user.RefreshTokenHash
	cur.RefreshTokenExpiresAt = user.RefreshTokenExpiresAt
	cur.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = cur
	return nil
}

func (r *MemoryRepository) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if hash == "" {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if u.RefreshTokenHash == hash {
			u.ClearRefreshToken()
			u.UpdatedAt = now
			r.users[id] = u
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(&u) {
			out := u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

// conflicts reports whether another user already owns user's email or
// refresh token digest. Callers hold r.mu.
func (r *MemoryRepository) conflicts(user *models.User) bool {
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email {
			return true
		}
		if user.RefreshTokenHash != "" && u.RefreshTokenHash == user.RefreshTokenHash {
			return true
		}
	}
	return false
}
