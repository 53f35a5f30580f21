package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CJuwaneme1704/SentinelIQ/internal/token"
)

func newTestSessions() *SessionManager {
	codec := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	return NewSessionManager(codec)
}

func TestIssueAccessTokenCarriesClaims(t *testing.T) {
	m := newTestSessions()

	signed, err := m.IssueAccessToken("alice", "USER")
	require.NoError(t, err)

	claims, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, claims.IssuedAt.Add(DefaultAccessTokenTTL).Unix(), claims.Expiry.Unix())
}

func TestIssueRefreshTokenHasNoRole(t *testing.T) {
	m := newTestSessions()

	signed, err := m.IssueRefreshToken("alice")
	require.NoError(t, err)

	claims, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Empty(t, claims.Role)
	assert.Equal(t, claims.IssuedAt.Add(DefaultRefreshTokenTTL).Unix(), claims.Expiry.Unix())
}

func TestValidateWrapsAllDefectsUniformly(t *testing.T) {
	m := newTestSessions()

	other := NewSessionManager(token.NewCodec([]byte("another-32-byte-signing-key-here")))
	foreign, err := other.IssueAccessToken("mallory", "USER")
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", foreign} {
		_, err := m.Validate(tok)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", tok)
	}
}

func TestRotateRefresh(t *testing.T) {
	m := newTestSessions()

	old, err := m.IssueRefreshToken("alice")
	require.NoError(t, err)

	// Later issuance means a later expiry on the rotated token.
	time.Sleep(1100 * time.Millisecond)

	rotated, err := m.RotateRefresh(old)
	require.NoError(t, err)
	require.NotEqual(t, old, rotated)

	oldClaims, err := m.Validate(old)
	require.NoError(t, err, "rotation is stateless; the old token stays verifiable")
	newClaims, err := m.Validate(rotated)
	require.NoError(t, err)

	assert.Equal(t, "alice", newClaims.Username)
	assert.Greater(t, newClaims.Expiry.Unix(), oldClaims.Expiry.Unix())
}

func TestRotateRefreshRejectsInvalidToken(t *testing.T) {
	m := newTestSessions()

	_, err := m.RotateRefresh("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthoritiesFor(t *testing.T) {
	m := newTestSessions()

	tests := []struct {
		role string
		want []string
	}{
		{role: "USER", want: []string{"ROLE_USER"}},
		{role: "admin", want: []string{"ROLE_ADMIN"}},
		{role: "", want: []string{"ROLE_"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.AuthoritiesFor(tt.role))
	}
}

func TestSessionManagerTTLDefaults(t *testing.T) {
	codec := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	m := NewSessionManagerWithTTL(codec, 0, 0)
	assert.Equal(t, DefaultAccessTokenTTL, m.AccessTokenTTL())
	assert.Equal(t, DefaultRefreshTokenTTL, m.RefreshTokenTTL())
}
