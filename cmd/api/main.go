package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flashdeck/flashdeck/internal/api"
	"github.com/flashdeck/flashdeck/internal/config"
	"github.com/flashdeck/flashdeck/internal/database"
	"github.com/flashdeck/flashdeck/internal/logger"
)

const version = "0.1.0"

var (
	configPath string

	configInit = config.Init
	configLoad = config.LoadConfig
)

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return configInit()
	}
	return configLoad(configPath)
}

func initializeAPI() (*api.Api, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg.Env, cfg.Log.Level)
	a, err := api.NewApi(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := initializeAPI()
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info("starting flashdeck API", "version", version)
			return a.Serve()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env, cfg.Log.Level)
			if err := database.RunMigrations(cfg.Database, nil, log); err != nil {
				return err
			}
			log.Info("database schema is up to date", "type", cfg.Database.Type)
			return nil
		},
	}

	rootCmd := &cobra.Command{
		Use:           "flashdeck",
		Short:         "Flashcard study backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (default: app.yml in FLASHDECK_CONFIG_DIR)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
