package main

import (
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := database.Connect(cfg); err != nil {
				return err
			}
			defer database.Close()

			return database.Migrate()
		},
	}
}
