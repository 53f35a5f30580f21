// Package auth implements stateless session management: issuing and
// validating access/refresh token pairs, rotating refresh tokens, and
// binding the caller's identity to inbound requests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CJuwaneme1704/SentinelIQ/internal/token"
)

// Default token lifetimes. Access tokens are short-lived; refresh
// tokens live for a week and are rotated on every use.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrUnauthenticated is the uniform failure for any token defect.
// Callers must not branch on whether a token was malformed or expired;
// the wrapped cause is retained for diagnostics only.
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionManager issues and validates session tokens.
type SessionManager struct {
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSessionManager creates a SessionManager with default lifetimes.
func NewSessionManager(codec *token.Codec) *SessionManager {
	return NewSessionManagerWithTTL(codec, DefaultAccessTokenTTL, DefaultRefreshTokenTTL)
}

// NewSessionManagerWithTTL creates a SessionManager with custom lifetimes.
func NewSessionManagerWithTTL(codec *token.Codec, accessTTL, refreshTTL time.Duration) *SessionManager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &SessionManager{
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func (m *SessionManager) AccessTokenTTL() time.Duration { return m.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (m *SessionManager) RefreshTokenTTL() time.Duration { return m.refreshTTL }

// IssueAccessToken mints a short-lived access token carrying the
// username and role.
func (m *SessionManager) IssueAccessToken(username, role string) (string, error) {
	return m.codec.Issue(token.Claims{Username: username, Role: role}, m.accessTTL)
}

// IssueRefreshToken mints a refresh token carrying only the username.
func (m *SessionManager) IssueRefreshToken(username string) (string, error) {
	return m.codec.Issue(token.Claims{Username: username}, m.refreshTTL)
}

// Validate decodes a token and wraps any defect into a uniform
// ErrUnauthenticated outcome.
func (m *SessionManager) Validate(tokenString string) (token.Claims, error) {
	claims, err := m.codec.Decode(tokenString)
	if err != nil {
		return token.Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

// RotateRefresh validates an existing refresh token and issues a fresh
// one for the same username. The old token is not tracked server-side;
// it stays verifiable until its own expiry.
func (m *SessionManager) RotateRefresh(oldToken string) (string, error) {
	claims, err := m.Validate(oldToken)
	if err != nil {
		return "", err
	}
	return m.IssueRefreshToken(claims.Username)
}

// AuthoritiesFor maps a role to its capability set.
func (m *SessionManager) AuthoritiesFor(role string) []string {
	return []string{"ROLE_" + strings.ToUpper(role)}
}
