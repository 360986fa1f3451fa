package catalog

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// ResolveByBarcode returns the stored product for barcode, fetching and
// persisting it from the external catalog on a local miss. A barcode neither
// side knows yields nil without error. Fetch failures are logged and also
// yield nil so a flaky catalog never breaks a scan.
func (s *CatalogService) ResolveByBarcode(ctx context.Context, barcode string) (*inbound.ProductDTO, error) {
	barcode = strings.TrimSpace(barcode)
	if !catalog.LooksLikeBarcode(barcode) {
		return nil, apperrors.NewValidationError(catalog.ErrInvalidBarcode.Error())
	}

	ctx, span := s.tracer.Start(ctx, "catalog.resolve_barcode")
	defer span.End()
	span.SetAttributes(attribute.String("barcode", barcode))

	local, err := s.products.FindByBarcode(ctx, barcode)
	if err == nil {
		span.SetAttributes(attribute.Bool("local_hit", true))
		return ProductDTO(local), nil
	}
	if !errors.Is(err, catalog.ErrProductNotFound) {
		return nil, apperrors.NewDatabaseError("find product by barcode", err)
	}

	fetched, err := s.source.FetchProduct(ctx, barcode)
	if err != nil {
		if !errors.Is(err, outbound.ErrNotInCatalog) {
			s.logger.Warn("Catalog lookup failed",
				zap.String("barcode", barcode),
				zap.Error(err),
			)
		}
		return nil, nil
	}

	details := fetched.Details
	details.Barcode = barcode
	p, err := catalog.NewExternalProduct(details, fetched.Raw)
	if err != nil {
		s.logger.Warn("Catalog returned an unusable product",
			zap.String("barcode", barcode),
			zap.Error(err),
		)
		return nil, nil
	}

	if err := s.products.Create(ctx, p); err != nil {
		if !errors.Is(err, catalog.ErrBarcodeTaken) {
			return nil, apperrors.NewDatabaseError("create product", err)
		}
		// Another request stored the same barcode first.
		existing, findErr := s.products.FindByBarcode(ctx, barcode)
		if findErr != nil {
			return nil, apperrors.NewDatabaseError("find product by barcode", findErr)
		}
		return ProductDTO(existing), nil
	}

	s.logger.Info("Product imported from catalog",
		zap.Uint("product_id", p.ID()),
		zap.String("barcode", barcode),
	)
	return ProductDTO(p), nil
}
