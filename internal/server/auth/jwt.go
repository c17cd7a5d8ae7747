package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultRole is stamped into every access token.
const DefaultRole = "User"

// TokenIssuer mints the two halves of a session. Access tokens are signed and
// self-verifying; refresh tokens are opaque random strings whose validity
// lives only in the store.
type TokenIssuer interface {
	IssueAccessToken(user *models.User, now time.Time) (token string, expiresAt time.Time, err error)
	IssueRefreshToken() (string, error)
}

// AccessTokenVerifier is what the transports need to authenticate a caller.
type AccessTokenVerifier interface {
	ParseAccessToken(token string) (*Claims, error)
}

// Claims is the access token payload: subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// IssuerConfig is read once at construction and never consulted again from
// ambient state.
type IssuerConfig struct {
	Secret    []byte
	Algorithm string // HS256, HS384 or HS512
	Issuer    string
	AccessTTL time.Duration
}

type JWTIssuer struct {
	secret    []byte
	method    *jwt.SigningMethodHMAC
	issuer    string
	accessTTL time.Duration
}

var _ TokenIssuer = (*JWTIssuer)(nil)
var _ AccessTokenVerifier = (*JWTIssuer)(nil)

func NewJWTIssuer(cfg IssuerConfig) (*JWTIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is required", common.ErrMisconfigured)
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access token TTL must be positive", common.ErrMisconfigured)
	}

	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", common.ErrMisconfigured, cfg.Algorithm)
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &JWTIssuer{
		secret:    secret,
		method:    method,
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
	}, nil
}

func (i *JWTIssuer) IssueAccessToken(user *models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Role:  DefaultRole,
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (i *JWTIssuer) IssueRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

// ParseAccessToken checks signature, algorithm, issuer and expiry.
// Expired tokens yield common.ErrTokenExpired, everything else
// common.ErrInvalidToken.
func (i *JWTIssuer) ParseAccessToken(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
