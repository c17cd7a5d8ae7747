package auth

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashRefreshToken is the at-rest form of a refresh token. Stores index on
// it, so a leaked table does not hand out usable tokens.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
