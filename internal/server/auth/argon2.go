package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters. They are encoded into each
// digest, so changing them does not invalidate existing passwords.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

var errMalformedArgon2Digest = errors.New("malformed argon2id digest")

// Argon2Hasher produces PHC-style strings:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: p}
}

func (h *Argon2Hasher) Hash(password []byte) (string, error) {
	salt, err := common.RandBytes(h.params.SaltLen)
	if err != nil {
		return "", err
	}
	p := h.params
	key := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password []byte, digest string) (bool, error) {
	p, salt, key, err := decodeArgon2(digest)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decodeArgon2(digest string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedArgon2Digest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, errMalformedArgon2Digest
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, errMalformedArgon2Digest
	}

	if p.Threads < 1 || p.Time < 1 || p.Memory < 8*uint32(p.Threads) {
		return p, nil, nil, errMalformedArgon2Digest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, errMalformedArgon2Digest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedArgon2Digest
	}

	return p, salt, key, nil
}
