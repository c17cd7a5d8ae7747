// Package models holds the credential server's domain records.
package models

import "time"

// User is the durable identity record.
//
// The refresh token is stored as its SHA-256 digest. RefreshTokenHash and
// RefreshTokenExpiresAt are always set or cleared together; use
// SetRefreshToken and ClearRefreshToken rather than assigning the fields.
type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (u *User) SetRefreshToken(hash string, expiresAt time.Time) {
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiresAt = expiresAt
}

func (u *User) ClearRefreshToken() {
	u.RefreshTokenHash = ""
	u.RefreshTokenExpiresAt = time.Time{}
}

func (u *User) HasRefreshToken() bool {
	return u.RefreshTokenHash != ""
}

// RefreshTokenUsableAt reports whether the stored refresh token is still
// valid at now. Validity requires now to be strictly before the expiry.
func (u *User) RefreshTokenUsableAt(now time.Time) bool {
	return u.HasRefreshToken() && now.Before(u.RefreshTokenExpiresAt)
}
