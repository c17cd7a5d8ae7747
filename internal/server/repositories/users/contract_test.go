package users

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newUser(id, email string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: "digest-" + id,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
}

// runContract exercises the behaviour every Repository implementation shares.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		r := newRepo(t)
		u := newUser("11111111-1111-1111-1111-111111111111", "a@x.com")
		require.NoError(t, r.Create(ctx, u))

		got, err := r.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
		assert.False(t, got.HasRefreshToken())
		assert.True(t, got.CreatedAt.Equal(t0))

		got, err = r.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Email)
	})

	t.Run("email is exact match", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newUser("11111111-1111-1111-1111-111111111111", "a@x.com")))

		_, err := r.GetUserByEmail(ctx, "A@x.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newUser("11111111-1111-1111-1111-111111111111", "a@x.com")))

		err := r.Create(ctx, newUser("22222222-2222-2222-2222-222222222222", "a@x.com"))
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.GetUserByEmail(ctx, "ghost@x.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = r.GetUserByRefreshTokenHash(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = r.GetUserByID(ctx, "33333333-3333-3333-3333-333333333333")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		err = r.Update(ctx, newUser("33333333-3333-3333-3333-333333333333", "g@x.com"))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("update sets and clears refresh token", func(t *testing.T) {
		r := newRepo(t)
		u := newUser("11111111-1111-1111-1111-111111111111", "a@x.com")
		require.NoError(t, r.Create(ctx, u))

		exp := t0.Add(7 * 24 * time.Hour)
		u.SetRefreshToken("h1", exp)
		u.UpdatedAt = t0.Add(time.Minute)
		require.NoError(t, r.Update(ctx, u))

		got, err := r.GetUserByRefreshTokenHash(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.RefreshTokenExpiresAt.Equal(exp))
		assert.True(t, got.UpdatedAt.Equal(u.UpdatedAt))

		u.ClearRefreshToken()
		require.NoError(t, r.Update(ctx, u))
		_, err = r.GetUserByRefreshTokenHash(ctx, "h1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("swap requires current hash", func(t *testing.T) {
		r := newRepo(t)
		u := newUser("11111111-1111-1111-1111-111111111111", "a@x.com")
		u.SetRefreshToken("h1", t0.Add(time.Hour))
		require.NoError(t, r.Create(ctx, u))

		u.SetRefreshToken("h2", t0.Add(2*time.Hour))
		require.NoError(t, r.SwapRefreshToken(ctx, u, "h1"))

		_, err := r.GetUserByRefreshTokenHash(ctx, "h1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		got, err := r.GetUserByRefreshTokenHash(ctx, "h2")
		require.NoError(t, err)
		assert.True(t, got.RefreshTokenExpiresAt.Equal(t0.Add(2*time.Hour)))

		u.SetRefreshToken("h3", t0.Add(3*time.Hour))
		assert.ErrorIs(t, r.SwapRefreshToken(ctx, u, "h1"), common.ErrorNotFound)
	})

	t.Run("revoke", func(t *testing.T) {
		r := newRepo(t)
		u := newUser("11111111-1111-1111-1111-111111111111", "a@x.com")
		u.SetRefreshToken("h1", t0.Add(time.Hour))
		require.NoError(t, r.Create(ctx, u))

		ok, err := r.RevokeRefreshToken(ctx, "h1", t0.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.RevokeRefreshToken(ctx, "h1", t0.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := r.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.HasRefreshToken())
	})

	t.Run("concurrent swap has one winner", func(t *testing.T) {
		r := newRepo(t)
		u := newUser("11111111-1111-1111-1111-111111111111", "a@x.com")
		u.SetRefreshToken("old", t0.Add(time.Hour))
		require.NoError(t, r.Create(ctx, u))

		const n = 8
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := *u
				next.SetRefreshToken(string(rune('a'+i)), t0.Add(2*time.Hour))
				if err := r.SwapRefreshToken(ctx, &next, "old"); err == nil {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}
