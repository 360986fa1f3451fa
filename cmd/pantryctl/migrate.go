package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/pantry/pkg/logger"
)

// migrateCommand manages the PostgreSQL schema. SQLite databases migrate
// themselves on open.
func migrateCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	run := func(fn func(*migrations.Migrator, *zap.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs the postgres driver, got %q", cfg.Database.Driver)
			}

			log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: "console"})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cm, err := postgres.NewConnectionManager(cfg, log)
			if err != nil {
				return err
			}

			m, err := migrations.New(cm.SQLDB(), cfg.Database.Database, log)
			if err != nil {
				_ = cm.Close()
				return err
			}
			defer func() { _ = m.Close() }()

			return fn(m, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(m *migrations.Migrator, _ *zap.Logger) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: run(func(m *migrations.Migrator, _ *zap.Logger) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: run(func(m *migrations.Migrator, log *zap.Logger) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil
			}),
		},
	)
	return cmd
}
