package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHashers(t *testing.T) map[string]PasswordHasher {
	t.Helper()
	b, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return map[string]PasswordHasher{
		"bcrypt": b,
		"argon2id": NewArgon2Hasher(Argon2Params{
			Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
		}),
	}
}

func TestHashers_SaltedAndVerifiable(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			pw := []byte("P@ssw0rd")

			d1, err := h.Hash(pw)
			require.NoError(t, err)
			d2, err := h.Hash(pw)
			require.NoError(t, err)

			assert.NotEqual(t, d1, d2, "same password must produce distinct digests")
			assert.NotContains(t, d1, string(pw))

			for _, d := range []string{d1, d2} {
				ok, err := h.Verify(pw, d)
				require.NoError(t, err)
				assert.True(t, ok)
			}

			ok, err := h.Verify([]byte("P@ssw0rD"), d1)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = h.Verify([]byte(""), d1)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHashers_MalformedDigest(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify([]byte("pw"), "not-a-digest")
			assert.False(t, ok)
			assert.Error(t, err)
		})
	}
}

func TestArgon2Hasher_MalformedDigestParams(t *testing.T) {
	h := NewArgon2Hasher(DefaultArgon2Params)

	tests := []struct {
		name   string
		digest string
	}{
		{name: "zero threads", digest: "$argon2id$v=19$m=65536,t=1,p=0$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{name: "zero time", digest: "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{name: "zero memory", digest: "$argon2id$v=19$m=0,t=1,p=4$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{name: "memory below 8 per thread", digest: "$argon2id$v=19$m=31,t=1,p=4$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{name: "empty salt", digest: "$argon2id$v=19$m=65536,t=1,p=4$$a2V5a2V5a2V5a2V5"},
		{name: "empty key", digest: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$"},
		{name: "bad base64 salt", digest: "$argon2id$v=19$m=65536,t=1,p=4$!!$a2V5a2V5a2V5a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				ok  bool
				err error
			)
			require.NotPanics(t, func() { ok, err = h.Verify([]byte("pw"), tt.digest) })
			assert.False(t, ok)
			assert.ErrorIs(t, err, errMalformedArgon2Digest)
		})
	}
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash([]byte(strings.Repeat("a", 73)))
	assert.True(t, errors.Is(err, common.ErrInvalidInput), "got %v", err)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	h, err := NewBcryptHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)

	_, err = NewBcryptHasher(99)
	assert.ErrorIs(t, err, common.ErrMisconfigured)
}

func TestArgon2Hasher_DigestFormat(t *testing.T) {
	h := NewArgon2Hasher(DefaultArgon2Params)
	d, err := h.Hash([]byte("pw"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d, "$argon2id$v=19$m=65536,t=1,p=4$"), d)

	// params come from the digest, not from the hasher
	other := NewArgon2Hasher(Argon2Params{Time: 3, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	ok, err := other.Verify([]byte("pw"), d)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	h, err = NewPasswordHasher("ARGON2ID", 0)
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h)

	_, err = NewPasswordHasher("md5", 0)
	assert.ErrorIs(t, err, common.ErrMisconfigured)
}
