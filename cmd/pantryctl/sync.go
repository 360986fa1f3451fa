package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/container"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
)

// syncCommand reconciles every barcoded product with Open Food Facts and
// prints the report as JSON.
func syncCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh barcoded products from Open Food Facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var (
				catalog inbound.CatalogService
				log     *zap.Logger
			)
			app := fx.New(
				fx.NopLogger,
				fx.Supply(cfg),
				container.CoreModule,
				fx.Populate(&catalog, &log),
			)
			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() { _ = app.Stop(context.WithoutCancel(ctx)) }()

			report, syncErr := catalog.SyncProducts(ctx)
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			if syncErr != nil {
				log.Error("Sync interrupted", zap.Error(syncErr))
				return syncErr
			}
			return nil
		},
	}
}
