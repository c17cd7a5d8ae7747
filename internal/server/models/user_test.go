package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_RefreshTokenLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{ID: "u1", Email: "a@x.com"}

	assert.False(t, u.HasRefreshToken())
	assert.False(t, u.RefreshTokenUsableAt(now))

	u.SetRefreshToken("digest", now.Add(time.Hour))
	assert.True(t, u.HasRefreshToken())
	assert.True(t, u.RefreshTokenUsableAt(now))
	assert.True(t, u.RefreshTokenUsableAt(now.Add(59*time.Minute)))

	// expiry itself is already unusable
	assert.False(t, u.RefreshTokenUsableAt(now.Add(time.Hour)))
	assert.False(t, u.RefreshTokenUsableAt(now.Add(2*time.Hour)))

	u.ClearRefreshToken()
	assert.Empty(t, u.RefreshTokenHash)
	assert.True(t, u.RefreshTokenExpiresAt.IsZero())
}
