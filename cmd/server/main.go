package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/config"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskmaster",
		Short:   "TaskMaster - personal task manager with a web UI and sync API",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (environment variables override it)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
