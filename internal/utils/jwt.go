package utils // package utils provides helpers for session tokens, passwords and codes

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidSession is returned for any token that fails signature, expiry
// or claim checks.  Callers only need to know the session is unusable.
var ErrInvalidSession = errors.New("invalid session")

// SessionToken is a signed JWT stored in the admin-token or affiliate-token
// cookie together with its expiry, which is reused as the cookie expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims identifies the principal behind a cookie.  Subject carries
// the admin or affiliate ID in decimal form.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 JWT for an admin or affiliate.
// The JWT includes subject (sub), role, expiration (exp) and issued at (iat).
func NewSessionToken(secret string, id uint64, role string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns the principal ID when the token
// is valid and carries the expected role.
func ParseSessionToken(secret, raw, role string) (uint64, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return 0, ErrInvalidSession
	}
	if claims.Role != role {
		return 0, ErrInvalidSession
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return id, nil
}
