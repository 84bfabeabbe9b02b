package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
)

var errNoDatabase = errors.New("database.host and database.name are required")

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the session table migrations to PostgreSQL, waiting for it to come up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := corecmd.ResolveConfigPath(corecmd.Options{
				ConfigPath:        *configPath,
				ConfigEnvVar:      configEnvVar,
				DefaultConfigPath: defaultConfigPath,
			})
			if err != nil {
				return err
			}
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return err
			}
			if cfg.Database.Host == "" || cfg.Database.Name == "" {
				return errNoDatabase
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()

			if err := coredatabase.RunMigrations(cfg.Database); err != nil {
				return err
			}
			logger.Info(context.Background(), "db.migrate", "done",
				slog.Int("files", len(coredatabase.MigrationFiles())),
			)
			return nil
		},
	}
}
