package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CJuwaneme1704/SentinelIQ/internal/auth"
	"github.com/CJuwaneme1704/SentinelIQ/internal/instrumentation"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
)

// stateCookie carries the CSRF state between the link redirect and the
// provider callback.
const (
	stateCookie       = "oauth_state"
	stateCookieMaxAge = 5 * time.Minute
)

func (s *Server) handleGmailLink(c *gin.Context) {
	if _, ok := auth.RequireIdentity(c); !ok {
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int(stateCookieMaxAge.Seconds()), "/", "", false, true)

	c.Redirect(http.StatusFound, s.config.OAuth.AuthCodeURL(state))
}

func (s *Server) handleGmailCallback(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	logger := logging.WithOperation(s.logger, "gmail_link")

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code missing"})
		return
	}
	expectedState, err := c.Cookie(stateCookie)
	if err != nil || expectedState == "" || c.Query("state") != expectedState {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	creds, err := s.config.OAuth.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		logger.Error("code exchange failed", logging.Err(err))
		writeError(c, err, "could not exchange authorization code")
		return
	}

	address, err := s.config.OAuth.UserEmail(ctx, creds)
	if err != nil {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		logger.Error("profile fetch failed", logging.Err(err))
		writeError(c, err, "could not resolve linked account address")
		return
	}

	// Advisory pre-check; the unique constraint on email_address is
	// what actually guarantees cross-user uniqueness.
	if exists, err := s.config.Accounts.ExistsByEmailAddress(ctx, address); err != nil {
		writeError(c, err, "")
		return
	} else if exists {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		c.JSON(http.StatusConflict, gin.H{"error": "this mailbox is already linked"})
		return
	}

	account := &model.EmailAccount{
		UserID:       user.ID,
		EmailAddress: address,
		DisplayName:  address,
		Provider:     "gmail",
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.Expiry,
	}
	if err := s.config.Accounts.Create(ctx, account); err != nil {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		writeError(c, err, "this mailbox is already linked")
		return
	}
	logger.Info("mailbox linked",
		logging.AccountID(account.ID), logging.UserHash(address))

	// First ingestion runs synchronously so the dashboard has content
	// the moment the browser lands on it. A failed first sync keeps the
	// linked account; the next sync will retry.
	if _, err := s.config.Pipeline.Ingest(ctx, account); err != nil {
		s.metrics.RecordOAuthLink(ctx, instrumentation.ResultError)
		logger.Error("initial sync failed", logging.AccountID(account.ID), logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "mailbox linked but the initial sync failed",
		})
		return
	}

	s.metrics.RecordOAuthLink(ctx, instrumentation.ResultSuccess)
	c.Redirect(http.StatusFound, s.config.DashboardURL)
}
