package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CJuwaneme1704/SentinelIQ/internal/auth"
	"github.com/CJuwaneme1704/SentinelIQ/internal/instrumentation"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// setSessionCookies issues the HttpOnly token pair. Lifetimes mirror
// the token TTLs so the browser drops cookies when the tokens die.
func (s *Server) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessTokenCookie, accessToken,
		int(s.config.Sessions.AccessTokenTTL().Seconds()), "/", "", false, true)
	c.SetCookie(auth.RefreshTokenCookie, refreshToken,
		int(s.config.Sessions.RefreshTokenTTL().Seconds()), "/", "", false, true)
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessTokenCookie, "", -1, "/", "", false, true)
	c.SetCookie(auth.RefreshTokenCookie, "", -1, "/", "", false, true)
}

// issueSession mints the token pair for a user and sets both cookies.
func (s *Server) issueSession(c *gin.Context, user *model.User) error {
	accessToken, err := s.config.Sessions.IssueAccessToken(user.Username, user.Role)
	if err != nil {
		return err
	}
	refreshToken, err := s.config.Sessions.IssueRefreshToken(user.Username)
	if err != nil {
		return err
	}
	s.setSessionCookies(c, accessToken, refreshToken)
	return nil
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}
	logger := logging.WithOperation(s.logger, "signup")
	ctx := c.Request.Context()

	// Advisory pre-checks for friendlier messages; the database
	// constraints remain authoritative.
	if taken, err := s.config.Users.ExistsByUsername(ctx, req.Username); err != nil {
		writeError(c, err, "")
		return
	} else if taken {
		s.metrics.RecordAuthOperation(ctx, "signup", instrumentation.ResultError)
		c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
		return
	}
	if taken, err := s.config.Users.ExistsByEmail(ctx, req.Email); err != nil {
		writeError(c, err, "")
		return
	} else if taken {
		s.metrics.RecordAuthOperation(ctx, "signup", instrumentation.ResultError)
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(c, err, "")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         "user",
	}
	if err := s.config.Users.Create(ctx, user); err != nil {
		s.metrics.RecordAuthOperation(ctx, "signup", instrumentation.ResultError)
		if statusFor(err) == http.StatusConflict {
			// Lost the race with a concurrent signup.
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already taken"})
			return
		}
		writeError(c, err, "")
		return
	}

	if err := s.issueSession(c, user); err != nil {
		writeError(c, err, "")
		return
	}

	s.metrics.RecordAuthOperation(ctx, "signup", instrumentation.ResultSuccess)
	logger.Info("user registered",
		logging.Username(user.Username), logging.UserHash(user.Email))
	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	logger := logging.WithOperation(s.logger, "login")
	ctx := c.Request.Context()

	user, err := s.config.Users.FindByUsername(ctx, req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Unknown user and wrong password are indistinguishable to the
		// caller.
		s.metrics.RecordAuthOperation(ctx, "login", instrumentation.ResultError)
		logger.Warn("login rejected", logging.Username(req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := s.issueSession(c, user); err != nil {
		writeError(c, err, "")
		return
	}

	s.metrics.RecordAuthOperation(ctx, "login", instrumentation.ResultSuccess)
	logger.Info("login succeeded", logging.Username(user.Username))
	c.JSON(http.StatusOK, gin.H{"message": "login successful"})
}

func (s *Server) handleRefresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken, _ = c.Cookie(auth.RefreshTokenCookie)
	}
	if refreshToken == "" {
		s.metrics.RecordAuthOperation(ctx, "refresh", instrumentation.ResultError)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
		return
	}

	claims, err := s.config.Sessions.Validate(refreshToken)
	if err != nil {
		s.metrics.RecordAuthOperation(ctx, "refresh", instrumentation.ResultError)
		writeError(c, err, "invalid refresh token")
		return
	}

	// The user must still exist; a deleted user's refresh token is dead
	// even though the signature still verifies.
	user, err := s.config.Users.FindByUsername(ctx, claims.Username)
	if err != nil {
		s.metrics.RecordAuthOperation(ctx, "refresh", instrumentation.ResultError)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	accessToken, err := s.config.Sessions.IssueAccessToken(user.Username, user.Role)
	if err != nil {
		writeError(c, err, "")
		return
	}
	rotated, err := s.config.Sessions.RotateRefresh(refreshToken)
	if err != nil {
		writeError(c, err, "invalid refresh token")
		return
	}
	s.setSessionCookies(c, accessToken, rotated)

	s.metrics.RecordAuthOperation(ctx, "refresh", instrumentation.ResultSuccess)
	c.JSON(http.StatusOK, gin.H{"message": "token refreshed"})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.clearSessionCookies(c)
	s.metrics.RecordAuthOperation(c.Request.Context(), "logout", instrumentation.ResultSuccess)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleCheck(c *gin.Context) {
	identity, ok := auth.RequireIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      identity.Username,
		"authorities":   identity.Authorities,
	})
}

// currentUser resolves the bound identity to its user row. A bound
// identity whose user has vanished is treated as unauthenticated.
func (s *Server) currentUser(c *gin.Context) (*model.User, bool) {
	identity, ok := auth.RequireIdentity(c)
	if !ok {
		return nil, false
	}
	user, err := s.config.Users.FindByUsername(c.Request.Context(), identity.Username)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return nil, false
		}
		writeError(c, err, "")
		return nil, false
	}
	return user, true
}
