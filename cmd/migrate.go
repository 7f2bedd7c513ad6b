package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sunrun/credithub/internal/config"
	"sunrun/credithub/internal/model"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL ledger tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Backend != "postgres" {
			return fmt.Errorf("migrate needs store.backend=postgres, got %q", cfg.Store.Backend)
		}

		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := model.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration completed")
		return nil
	},
}
