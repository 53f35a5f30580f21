package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
)

// Cookie names for the session token pair.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// identityKey is the gin context key under which the request identity
// is bound.
const identityKey = "sentineliq.identity"

// Identity is the authenticated caller bound to a request.
type Identity struct {
	Username    string
	Role        string
	Authorities []string
}

// Authenticator is the per-request authentication gate. It runs once
// per inbound request, before handler dispatch, and either binds an
// identity or leaves the request anonymous. It never aborts: a missing
// or invalid token degrades to "no identity" and downstream
// authorization decides the response.
type Authenticator struct {
	sessions *SessionManager
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator backed by the given
// SessionManager.
func NewAuthenticator(sessions *SessionManager, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{sessions: sessions, logger: logger}
}

// Middleware returns the gin handler performing the authentication pass.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AccessTokenCookie)
		if err != nil || tokenString == "" {
			// Absence is not an error; the request proceeds anonymous.
			a.logger.Debug("no access token cookie",
				slog.String(logging.KeyPath, c.Request.URL.Path))
			c.Next()
			return
		}

		claims, err := a.sessions.Validate(tokenString)
		if err != nil {
			// Invalid and missing tokens are observably identical
			// downstream; they differ only in what gets logged here.
			a.logger.Warn("access token rejected",
				slog.String(logging.KeyPath, c.Request.URL.Path),
				logging.Err(err))
			c.Next()
			return
		}

		c.Set(identityKey, Identity{
			Username:    claims.Username,
			Role:        claims.Role,
			Authorities: a.sessions.AuthoritiesFor(claims.Role),
		})
		a.logger.Debug("authenticated request",
			logging.Username(claims.Username),
			slog.String(logging.KeyPath, c.Request.URL.Path))
		c.Next()
	}
}

// IdentityFrom returns the identity bound to the request, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// RequireIdentity returns the bound identity or writes a 401 and
// aborts the request.
func RequireIdentity(c *gin.Context) (Identity, bool) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return Identity{}, false
	}
	return id, true
}
