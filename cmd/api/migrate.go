package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"labreport/api/internal/store"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}
	f := cmd.Flags()
	f.String("database-url", "", "Postgres URL")
	f.String("migrations-dir", "./db/migrations", "Directory of NNNN_name.{up,down}.sql files")
	f.Bool("down", false, "Roll back the most recent migration instead")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if cfg.DatabaseURL == "" {
		return errors.New("database-url is required")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if down, _ := cmd.Flags().GetBool("down"); down {
		version, err := store.RollbackMigration(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if version == "" {
			logger.Info("no migrations to roll back")
			return nil
		}
		logger.Info("rolled back migration", zap.String("version", version))
		return nil
	}

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("migrations up to date", zap.Strings("applied", applied))
	return nil
}
