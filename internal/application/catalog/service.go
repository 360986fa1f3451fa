// Package catalog provides the application layer for products, custom
// ingredients and the external food catalog.
package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

const (
	defaultSearchPageSize   = 20
	defaultLocalSearchLimit = 25
)

// Options tune the external catalog behaviour.
type Options struct {
	// SyncRequestsPerSec throttles bulk sync. Zero or less disables the delay.
	SyncRequestsPerSec float64
	// SearchPageSize is the page size asked of each external search variant.
	SearchPageSize int
	// LocalSearchLimit caps each local table in a streamed search.
	LocalSearchLimit int
}

func (o Options) withDefaults() Options {
	if o.SearchPageSize <= 0 {
		o.SearchPageSize = defaultSearchPageSize
	}
	if o.LocalSearchLimit <= 0 {
		o.LocalSearchLimit = defaultLocalSearchLimit
	}
	return o
}

func (o Options) syncLimit() rate.Limit {
	if o.SyncRequestsPerSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(o.SyncRequestsPerSec)
}

// CatalogService implements the catalog use cases
type CatalogService struct {
	products outbound.ProductRepository
	customs  outbound.CustomIngredientRepository
	source   outbound.CatalogSource
	events   shared.EventDispatcher
	opts     Options
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	products outbound.ProductRepository,
	customs outbound.CustomIngredientRepository,
	source outbound.CatalogSource,
	events shared.EventDispatcher,
	opts Options,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		customs:  customs,
		source:   source,
		events:   events,
		opts:     opts.withDefaults(),
		logger:   logger.Named("catalog-service"),
		tracer:   otel.Tracer("github.com/alchemorsel/pantry/internal/application/catalog"),
	}
}

var _ inbound.CatalogService = (*CatalogService)(nil)

// CreateProduct stores a manually entered product.
func (s *CatalogService) CreateProduct(ctx context.Context, cmd inbound.ProductCommand) (*inbound.ProductDTO, error) {
	p, err := catalog.NewProduct(productDetails(cmd))
	if err != nil {
		return nil, validationError(err)
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, s.productError(err, cmd.Barcode)
	}

	s.logger.Info("Product created",
		zap.Uint("product_id", p.ID()),
		zap.String("name", p.Name()),
	)
	return ProductDTO(p), nil
}

// UpdateProduct replaces the mutable fields of a product. The source and
// raw payload are kept.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, cmd inbound.ProductCommand) (*inbound.ProductDTO, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, s.productError(err, idString(id))
	}

	if err := p.Update(productDetails(cmd)); err != nil {
		return nil, validationError(err)
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, catalog.ErrBarcodeTaken) {
			return nil, apperrors.NewBarcodeTakenError(cmd.Barcode)
		}
		return nil, s.productError(err, idString(id))
	}
	return ProductDTO(p), nil
}

// DeleteProduct removes a product that no recipe references.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	referenced, err := s.products.IsReferenced(ctx, id)
	if err != nil {
		return apperrors.NewDatabaseError("check product references", err)
	}
	if referenced {
		return apperrors.NewProductInUseError(string(catalog.RefProduct), idString(id))
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductInUse) {
			return apperrors.NewProductInUseError(string(catalog.RefProduct), idString(id))
		}
		return s.productError(err, idString(id))
	}

	s.logger.Info("Product deleted", zap.Uint("product_id", id))
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*inbound.ProductDTO, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, s.productError(err, idString(id))
	}
	return ProductDTO(p), nil
}

func (s *CatalogService) CreateCustomIngredient(ctx context.Context, cmd inbound.CustomIngredientCommand) (*inbound.CustomIngredientDTO, error) {
	c, err := catalog.NewCustomIngredient(cmd.Name, cmd.Macros)
	if err != nil {
		return nil, validationError(err)
	}

	if err := s.customs.Create(ctx, c); err != nil {
		return nil, apperrors.NewDatabaseError("create custom ingredient", err)
	}

	s.logger.Info("Custom ingredient created",
		zap.String("ingredient_id", c.ID().String()),
		zap.String("name", c.Name()),
	)
	return CustomIngredientDTO(c), nil
}

func (s *CatalogService) UpdateCustomIngredient(ctx context.Context, id uuid.UUID, cmd inbound.CustomIngredientCommand) (*inbound.CustomIngredientDTO, error) {
	c, err := s.customs.FindByID(ctx, id)
	if err != nil {
		return nil, s.customError(err, id)
	}

	if err := c.Update(cmd.Name, cmd.Macros); err != nil {
		return nil, validationError(err)
	}
	if err := s.customs.Update(ctx, c); err != nil {
		return nil, s.customError(err, id)
	}
	return CustomIngredientDTO(c), nil
}

// DeleteCustomIngredient removes a custom ingredient that no recipe
// references.
func (s *CatalogService) DeleteCustomIngredient(ctx context.Context, id uuid.UUID) error {
	referenced, err := s.customs.IsReferenced(ctx, id)
	if err != nil {
		return apperrors.NewDatabaseError("check ingredient references", err)
	}
	if referenced {
		return apperrors.NewProductInUseError(string(catalog.RefCustom), id.String())
	}

	if err := s.customs.Delete(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductInUse) {
			return apperrors.NewProductInUseError(string(catalog.RefCustom), id.String())
		}
		return s.customError(err, id)
	}

	s.logger.Info("Custom ingredient deleted", zap.String("ingredient_id", id.String()))
	return nil
}

func (s *CatalogService) GetCustomIngredient(ctx context.Context, id uuid.UUID) (*inbound.CustomIngredientDTO, error) {
	c, err := s.customs.FindByID(ctx, id)
	if err != nil {
		return nil, s.customError(err, id)
	}
	return CustomIngredientDTO(c), nil
}

func (s *CatalogService) publish(pending []shared.DomainEvent) {
	for _, event := range pending {
		if err := s.events.Dispatch(event); err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
		}
	}
}

func (s *CatalogService) productError(err error, ref string) error {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return apperrors.NewProductNotFoundError(ref)
	case errors.Is(err, catalog.ErrBarcodeTaken):
		return apperrors.NewBarcodeTakenError(ref)
	default:
		return apperrors.NewDatabaseError("product", err)
	}
}

func (s *CatalogService) customError(err error, id uuid.UUID) error {
	if errors.Is(err, catalog.ErrIngredientNotFound) {
		return apperrors.NewIngredientNotFoundError(catalog.CustomRef(id).String())
	}
	return apperrors.NewDatabaseError("custom ingredient", err)
}

// ProductDTO converts a product for clients.
func ProductDTO(p *catalog.Product) *inbound.ProductDTO {
	return &inbound.ProductDTO{
		ID:        p.ID(),
		Name:      p.Name(),
		Brand:     p.Brand(),
		Barcode:   p.Barcode(),
		Macros:    p.Macros(),
		ImageURL:  p.ImageURL(),
		Source:    p.Source(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

// CustomIngredientDTO converts a custom ingredient for clients.
func CustomIngredientDTO(c *catalog.CustomIngredient) *inbound.CustomIngredientDTO {
	return &inbound.CustomIngredientDTO{
		ID:        c.ID(),
		Name:      c.Name(),
		Macros:    c.Macros(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

func productDetails(cmd inbound.ProductCommand) catalog.ProductDetails {
	return catalog.ProductDetails{
		Name:     cmd.Name,
		Brand:    cmd.Brand,
		Barcode:  cmd.Barcode,
		Macros:   cmd.Macros,
		ImageURL: cmd.ImageURL,
	}
}

func validationError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrEmptyName),
		errors.Is(err, catalog.ErrNegativeNutrient),
		errors.Is(err, catalog.ErrInvalidBarcode):
		return apperrors.NewValidationError(err.Error())
	default:
		return apperrors.Wrap(err, "invalid ingredient")
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
