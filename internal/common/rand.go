package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString reads size random bytes and returns them hex encoded, so
// the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b, err := RandBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandBytes returns size bytes from crypto/rand.
func RandBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray zeroes b in place. Used for plaintext passwords once they are
// no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
