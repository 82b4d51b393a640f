package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !cfg.Database.Enabled() {
		return fmt.Errorf("migrate: no database configured")
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, dirty, err := storage.MigrationVersion(dsn, cfg.Database.MigrationsPath)
	if err != nil {
		return fmt.Errorf("migrate: reading version: %w", err)
	}
	log.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}
