package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
)

type inboxSummary struct {
	ID           int64      `json:"id"`
	DisplayName  string     `json:"displayName"`
	EmailAddress string     `json:"emailAddress"`
	Provider     string     `json:"provider"`
	LastSynced   *time.Time `json:"lastSynced,omitempty"`
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	accounts, err := s.config.Accounts.FindAllByUser(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err, "")
		return
	}

	inboxes := make([]inboxSummary, 0, len(accounts))
	for _, a := range accounts {
		inboxes = append(inboxes, inboxSummary{
			ID:           a.ID,
			DisplayName:  a.DisplayName,
			EmailAddress: a.EmailAddress,
			Provider:     a.Provider,
			LastSynced:   a.LastSynced,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"username": user.Username,
		"name":     user.Name,
		"inboxes":  inboxes,
	})
}

// ownedAccount loads the account from the :id path parameter and
// enforces that the caller owns it.
func (s *Server) ownedAccount(c *gin.Context, user *model.User) (*model.EmailAccount, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return nil, false
	}

	account, err := s.config.Accounts.FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "account not found")
		return nil, false
	}
	if account.UserID != user.ID {
		writeError(c, ErrForbidden, "")
		return nil, false
	}
	return account, true
}

func (s *Server) handleListEmails(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	account, ok := s.ownedAccount(c, user)
	if !ok {
		return
	}

	emails, err := s.config.Emails.FindAllByAccount(c.Request.Context(), account.ID)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

func (s *Server) handleFetch(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	account, ok := s.ownedAccount(c, user)
	if !ok {
		return
	}

	result, err := s.config.Pipeline.Ingest(c.Request.Context(), account)
	if err != nil {
		s.logger.Error("manual sync failed",
			logging.AccountID(account.ID), logging.Err(err))
		writeError(c, err, "could not fetch messages from provider")
		return
	}
	c.JSON(http.StatusOK, result)
}
