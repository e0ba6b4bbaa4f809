package main

import (
	"github.com/spf13/cobra"

	"github.com/opiegroup/atomictawk-sub002/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.DatabaseDSN, logger)
		},
	}
}
