package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/pkg/config"
	"github.com/noah-isme/oficios-api/pkg/database"
	"github.com/noah-isme/oficios-api/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the oficios database schema",
		Long:  "Apply, revert or inspect the embedded goose migrations against the configured database.",
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum time for the command")

	cmd.AddCommand(
		migrationCmd("up", "Apply every pending migration", &timeout, database.Migrate),
		migrationCmd("down", "Revert the most recent migration", &timeout, database.Rollback),
		migrationCmd("status", "Print the state of every migration", &timeout, database.Status),
	)
	return cmd
}

func migrationCmd(use, short string, timeout *time.Duration, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			if err := run(ctx, db.DB); err != nil {
				logr.Error("migration failed", zap.String("command", use), zap.Error(err))
				return err
			}
			logr.Info("migration finished", zap.String("command", use))
			return nil
		},
	}
}
