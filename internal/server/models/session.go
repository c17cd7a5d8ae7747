package models

import "time"

// Session is what register, login and refresh hand back to the caller. The
// refresh token is the raw value; the store only ever sees its digest.
type Session struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}
