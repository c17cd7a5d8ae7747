package users

import (
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// refreshColumns returns the (hash, expiry) pair as stored, both NULL when
// the user holds no token.
func refreshColumns(u *models.User) (sql.NullString, sql.NullTime) {
	if !u.HasRefreshToken() {
		return sql.NullString{}, sql.NullTime{}
	}
	return nullString(u.RefreshTokenHash), sql.NullTime{Time: u.RefreshTokenExpiresAt.UTC(), Valid: true}
}
