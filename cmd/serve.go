package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/CJuwaneme1704/SentinelIQ/internal/auth"
	"github.com/CJuwaneme1704/SentinelIQ/internal/config"
	"github.com/CJuwaneme1704/SentinelIQ/internal/google"
	"github.com/CJuwaneme1704/SentinelIQ/internal/ingest"
	"github.com/CJuwaneme1704/SentinelIQ/internal/instrumentation"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/server"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
	"github.com/CJuwaneme1704/SentinelIQ/internal/token"
)

func newServeCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Starts the SentinelIQ API server, and unless disabled, a dedicated
Prometheus metrics server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	bindConfigFlags(cmd, v)
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = instrConfig.Enabled && cfg.MetricsEnabled
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	sessions := auth.NewSessionManagerWithTTL(
		token.NewCodec([]byte(cfg.JWTSecret)),
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	oauth := google.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	accounts := store.NewAccounts(pool)
	emails := store.NewEmails(pool)

	pipeline := ingest.New(
		&ingest.GoogleOpener{OAuth: oauth},
		accounts, emails,
		ingest.Options{
			Logger:  logger,
			Metrics: provider.Metrics(),
			Tracer:  provider.Tracer(instrumentation.TracerName),
		})

	apiServer := server.New(server.Config{
		Addr:          cfg.HTTPAddr,
		Sessions:      sessions,
		Authenticator: auth.NewAuthenticator(sessions, logger),
		Users:         store.NewUsers(pool),
		Accounts:      accounts,
		Emails:        emails,
		OAuth:         oauth,
		Pipeline:      pipeline,
		DB:            pool,
		DashboardURL:  cfg.DashboardURL,
		Logger:        logger,
		Metrics:       provider.Metrics(),
		Tracer:        provider.Tracer(instrumentation.TracerName),
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- apiServer.Start()
	}()

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}
