package repomanager

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps the store in process memory. Transactions
// work on a snapshot that replaces the live data only when fn succeeds;
// every other call waits while a transaction is open.
type MemoryRepositoryManager struct {
	mu    sync.Mutex
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }

func (m *MemoryRepositoryManager) Users() users.Repository {
	return lockedRepository{m: m}
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.users.Snapshot()
	if err := fn(ctx, snap); err != nil {
		return err
	}
	m.users.Replace(snap)
	return nil
}

// lockedRepository serialises single calls against open transactions.
type lockedRepository struct {
	m *MemoryRepositoryManager
}

func (r lockedRepository) Create(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.Create(ctx, user)
}

func (r lockedRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.GetUserByID(ctx, id)
}

func (r lockedRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.GetUserByEmail(ctx, email)
}

func (r lockedRepository) GetUserByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.GetUserByRefreshTokenHash(ctx, hash)
}

func (r lockedRepository) Update(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.Update(ctx, user)
}

func (r lockedRepository) SwapRefreshToken(ctx context.Context, user *models.User, oldHash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.SwapRefreshToken(ctx, user, oldHash)
}

func (r lockedRepository) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users.RevokeRefreshToken(ctx, hash, now)
}
