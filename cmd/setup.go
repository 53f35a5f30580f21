package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CJuwaneme1704/SentinelIQ/internal/config"
	"github.com/CJuwaneme1704/SentinelIQ/internal/logging"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
)

func newSetupCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the database schema",
		Long: `Connects to the configured Postgres database and creates the tables,
constraints and indexes the backend needs. The statements are
idempotent; running setup against an existing schema is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()

			pool, err := store.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := store.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
			logger.Info("database schema is up to date", slog.String("operation", "setup"))
			return nil
		},
	}

	bindConfigFlags(cmd, v)
	return cmd
}
