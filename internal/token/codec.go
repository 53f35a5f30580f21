// Package token implements the signed session token codec.
//
// Tokens are compact JWS strings (HS256) carrying the username, an
// optional role, and issued-at/expiry timestamps. The same symmetric
// key signs and verifies; decoding rejects expired tokens rather than
// leaving expiry checks to callers.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token cannot be parsed or its
	// signature does not verify.
	ErrMalformed = errors.New("malformed token")

	// ErrExpired is returned when a token is structurally valid and
	// correctly signed but its expiry has passed.
	ErrExpired = errors.New("token expired")
)

// Claims is the payload embedded in a session token.
type Claims struct {
	Username string
	Role     string
	IssuedAt time.Time
	Expiry   time.Time
}

type jwtClaims struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and decodes signed session tokens.
type Codec struct {
	key []byte
	// now is swappable for tests
	now func() time.Time
}

// NewCodec creates a Codec signing with the given symmetric secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{key: secret, now: time.Now}
}

// Issue produces a signed token embedding the claims with
// expiry = now + ttl.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Username: claims.Username,
		Role:     claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of a token and returns its
// claims. Expired tokens fail with ErrExpired; any other defect fails
// with ErrMalformed.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	var parsed jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims := Claims{
		Username: parsed.Username,
		Role:     parsed.Role,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.Expiry = parsed.ExpiresAt.Time
	}
	return claims, nil
}
