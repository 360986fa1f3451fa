package catalog

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

const reasonNotInCatalog = "not found in external catalog"

// SyncProducts reconciles every catalog-sourced product with the external
// catalog. Requests are spaced by the configured rate. A product is written
// only when its data drifted, so a second run over unchanged data updates
// nothing. One failing product never stops the rest. When ctx ends the
// report so far is returned together with the context error.
func (s *CatalogService) SyncProducts(ctx context.Context) (*inbound.SyncReport, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.sync")
	defer span.End()

	report := &inbound.SyncReport{UpdatedNames: []string{}, Failures: []inbound.SyncFailure{}}

	products, err := s.products.ListSyncable(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list products failed")
		return nil, apperrors.NewDatabaseError("list syncable products", err)
	}

	s.logger.Info("Starting catalog sync", zap.Int("products", len(products)))
	limiter := rate.NewLimiter(s.opts.syncLimit(), 1)

	for _, p := range products {
		if err := limiter.Wait(ctx); err != nil {
			return s.interrupted(span, report, err)
		}

		updated, reason := s.syncOne(ctx, p)
		switch {
		case updated:
			report.UpdatedNames = append(report.UpdatedNames, p.Name())
		case reason != "":
			if err := ctx.Err(); err != nil {
				return s.interrupted(span, report, err)
			}
			report.Failures = append(report.Failures, inbound.SyncFailure{ID: p.ID(), Name: p.Name(), Reason: reason})
			s.logger.Warn("Product sync failed",
				zap.Uint("product_id", p.ID()),
				zap.String("reason", reason),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("updated", len(report.UpdatedNames)),
		attribute.Int("failed", len(report.Failures)),
	)
	s.logger.Info("Catalog sync finished",
		zap.Int("updated", len(report.UpdatedNames)),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

// syncOne refreshes p from the catalog. A non-empty reason means the
// product could not be synced.
func (s *CatalogService) syncOne(ctx context.Context, p *catalog.Product) (bool, string) {
	fetched, err := s.source.FetchProduct(ctx, p.Barcode())
	if err != nil {
		if errors.Is(err, outbound.ErrNotInCatalog) {
			return false, reasonNotInCatalog
		}
		return false, err.Error()
	}

	if !p.Drifted(fetched.Details) {
		return false, ""
	}
	if err := p.Refresh(fetched.Details, fetched.Raw); err != nil {
		return false, err.Error()
	}
	if err := s.products.Update(ctx, p); err != nil {
		return false, err.Error()
	}

	s.publish(p.Events())
	return true, ""
}

func (s *CatalogService) interrupted(span trace.Span, report *inbound.SyncReport, err error) (*inbound.SyncReport, error) {
	span.SetAttributes(attribute.Bool("interrupted", true))
	s.logger.Warn("Catalog sync interrupted",
		zap.Int("updated", len(report.UpdatedNames)),
		zap.Int("failed", len(report.Failures)),
		zap.Error(err),
	)
	return report, err
}
