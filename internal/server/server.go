// Package server assembles the HTTP API: routing, session middleware,
// handlers, health probes, and the dedicated metrics listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CJuwaneme1704/SentinelIQ/internal/auth"
	"github.com/CJuwaneme1704/SentinelIQ/internal/google"
	"github.com/CJuwaneme1704/SentinelIQ/internal/ingest"
	"github.com/CJuwaneme1704/SentinelIQ/internal/instrumentation"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/model"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
)

// Default timeouts for the API server.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// Ingestor runs an ingestion cycle for one linked account.
type Ingestor interface {
	Ingest(ctx context.Context, account *model.EmailAccount) (ingest.Result, error)
}

// LinkFlow is the OAuth2 surface the link handlers consume.
// *google.OAuth satisfies it.
type LinkFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.Credentials, error)
	UserEmail(ctx context.Context, creds *google.Credentials) (string, error)
}

// Pinger reports backend connectivity for readiness checks.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the collaborators of the API server.
type Config struct {
	Addr          string
	Sessions      *auth.SessionManager
	Authenticator *auth.Authenticator
	Users         store.UserStore
	Accounts      store.AccountStore
	Emails        store.EmailStore
	OAuth         LinkFlow
	Pipeline      Ingestor
	DB            Pinger
	DashboardURL  string
	Logger        *slog.Logger
	Metrics       *instrumentation.Metrics
	Tracer        trace.Tracer
}

// Server is the SentinelIQ HTTP API.
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	tracer     trace.Tracer
	shutdown   atomic.Bool
}

// New assembles the API server and registers all routes.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Tracer == nil {
		config.Tracer = noop.NewTracerProvider().Tracer(instrumentation.TracerName)
	}

	s := &Server{
		config:  config,
		logger:  config.Logger,
		metrics: config.Metrics,
		tracer:  config.Tracer,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.observe())
	engine.Use(config.Authenticator.Middleware())

	s.registerRoutes(engine)
	s.engine = engine
	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	health := NewHealthChecker(s.config.DB)
	engine.GET("/healthz", health.Liveness)
	engine.GET("/readyz", health.Readiness)

	authGroup := engine.Group("/auth")
	{
		authGroup.POST("/signup", s.handleSignup)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.GET("/check", s.handleCheck)
		authGroup.GET("/gmail/link", s.handleGmailLink)
		authGroup.GET("/gmail/callback", s.handleGmailCallback)
	}

	api := engine.Group("/api")
	{
		api.GET("/me", s.handleMe)
		api.GET("/emailAccounts/:id/emails", s.handleListEmails)
		api.POST("/gmail/:id/fetch", s.handleFetch)
	}
}

// observe is the request logging and metrics middleware.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// FullPath keeps the metric cardinality bounded by route, not
		// by raw URL.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, path, status, duration)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String(logging.KeyPath, path),
			slog.Int("status", status),
			slog.Duration("duration", duration))
	}
}

// Handler exposes the assembled engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the API server until the listener fails or Shutdown is
// called. It blocks.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting API server", slog.String("addr", s.config.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Store(true)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// IsShutdown reports whether Shutdown has been initiated.
func (s *Server) IsShutdown() bool {
	return s.shutdown.Load()
}
