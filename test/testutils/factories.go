// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// FixedTime is a stable timestamp for restored entities.
func FixedTime() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

// CatalogFactory generates products and external catalog records.
type CatalogFactory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewCatalogFactory creates a factory with a seeded faker so runs are
// reproducible.
func NewCatalogFactory(seed int64) *CatalogFactory {
	return &CatalogFactory{faker: gofakeit.New(seed)}
}

// Macros returns plausible per-100 g values.
func (f *CatalogFactory) Macros() catalog.Macros {
	return catalog.Macros{
		Calories: f.faker.Float64Range(20, 600),
		Protein:  f.faker.Float64Range(0, 30),
		Fat:      f.faker.Float64Range(0, 40),
		Carbs:    f.faker.Float64Range(0, 80),
	}.Rounded()
}

// Barcode returns a unique 13 digit code.
func (f *CatalogFactory) Barcode() string {
	f.seq++
	return fmt.Sprintf("40%08d%03d", f.faker.Number(0, 99999999), f.seq%1000)
}

// ProductDetails returns details for a catalog-sourced product.
func (f *CatalogFactory) ProductDetails() catalog.ProductDetails {
	return catalog.ProductDetails{
		Name:     f.faker.Snack(),
		Brand:    f.faker.Company(),
		Barcode:  f.Barcode(),
		Macros:   f.Macros(),
		ImageURL: f.faker.URL(),
	}
}

// ExternalProduct wraps details the way the catalog client returns them.
func (f *CatalogFactory) ExternalProduct(d catalog.ProductDetails) outbound.ExternalProduct {
	return outbound.ExternalProduct{
		Code:    d.Barcode,
		Details: d,
		Raw:     []byte(fmt.Sprintf(`{"code":%q,"product":{"product_name":%q}}`, d.Barcode, d.Name)),
	}
}

// ExternalProductFor builds a catalog record mirroring p.
func ExternalProductFor(p *catalog.Product) *outbound.ExternalProduct {
	return &outbound.ExternalProduct{
		Code: p.Barcode(),
		Details: catalog.ProductDetails{
			Name:     p.Name(),
			Brand:    p.Brand(),
			Barcode:  p.Barcode(),
			Macros:   p.Macros(),
			ImageURL: p.ImageURL(),
		},
		Raw: p.RawPayload(),
	}
}
