package outbound

import (
	"context"
	"errors"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
)

// ErrNotInCatalog is returned when the external catalog has no product
// for a barcode.
var ErrNotInCatalog = errors.New("product not found in external catalog")

// ExternalProduct is a product record fetched from the external catalog.
type ExternalProduct struct {
	Code    string
	Details catalog.ProductDetails
	Raw     []byte
}

// ExternalQuery selects a search variant against the external catalog.
type ExternalQuery struct {
	Terms    string
	Brand    string
	PageSize int
}

// CatalogSource is the external food catalog.
type CatalogSource interface {
	// FetchProduct returns ErrNotInCatalog for unknown barcodes.
	FetchProduct(ctx context.Context, barcode string) (*ExternalProduct, error)
	SearchProducts(ctx context.Context, q ExternalQuery) ([]ExternalProduct, error)
}
