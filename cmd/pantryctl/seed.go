package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/container"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/sqlite"
)

// seedCommand loads the demo products and recipes into an empty database.
func seedCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo data into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Database.Seed = false

			var (
				db  *gorm.DB
				log *zap.Logger
			)
			app := fx.New(
				fx.NopLogger,
				fx.Supply(cfg),
				container.LoggerModule,
				container.MetricsModule,
				container.DatabaseModule,
				fx.Populate(&db, &log),
			)
			if err := app.Err(); err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := sqlite.SeedDatabase(db.WithContext(cmd.Context())); err != nil {
				return err
			}
			log.Info("Seeded demo data", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
