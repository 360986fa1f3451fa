// Package catalog models the ingredients recipes are built from: products,
// which may come from the external food catalog, and admin-entered custom
// ingredients.
package catalog

import (
	"strings"
	"time"

	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/pkg/textkey"
)

// Source records where a product's data came from.
type Source string

const (
	SourceManual        Source = "manual"
	SourceOpenFoodFacts Source = "openfoodfacts"
)

// Macros are nutrient values per 100 g.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Rounded returns m with every value rounded to two decimals.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: nutrition.Round2(m.Calories),
		Protein:  nutrition.Round2(m.Protein),
		Fat:      nutrition.Round2(m.Fat),
		Carbs:    nutrition.Round2(m.Carbs),
	}
}

func (m Macros) validate() error {
	if m.Calories < 0 || m.Protein < 0 || m.Fat < 0 || m.Carbs < 0 {
		return ErrNegativeNutrient
	}
	return nil
}

// Item converts m into a calculator line of the given weight.
func (m Macros) Item(quantity float64) nutrition.Item {
	return nutrition.Item{
		Quantity: quantity,
		Calories: nutrition.Ptr(m.Calories),
		Protein:  nutrition.Ptr(m.Protein),
		Fat:      nutrition.Ptr(m.Fat),
		Carbs:    nutrition.Ptr(m.Carbs),
	}
}

// Product is a packaged food. The normalized name is always derived from the
// name in the same call that sets it.
type Product struct {
	shared.AggregateRoot

	id             uint
	name           string
	normalizedName string
	brand          string
	barcode        *string
	macros         Macros
	imageURL       string
	source         Source
	rawPayload     []byte
	createdAt      time.Time
	updatedAt      time.Time
}

// ProductDetails are the mutable fields of a product.
type ProductDetails struct {
	Name     string
	Brand    string
	Barcode  string
	Macros   Macros
	ImageURL string
}

// NewProduct creates a manually entered product.
func NewProduct(d ProductDetails) (*Product, error) {
	p := &Product{source: SourceManual, createdAt: time.Now(), updatedAt: time.Now()}
	if err := p.apply(d); err != nil {
		return nil, err
	}
	return p, nil
}

// NewExternalProduct creates a product from a catalog lookup. Macros are
// stored rounded so later comparisons during sync are stable.
func NewExternalProduct(d ProductDetails, raw []byte) (*Product, error) {
	d.Macros = d.Macros.Rounded()
	p, err := NewProduct(d)
	if err != nil {
		return nil, err
	}
	p.source = SourceOpenFoodFacts
	p.rawPayload = raw
	return p, nil
}

// RestoreProduct rebuilds a product from storage without validation.
func RestoreProduct(id uint, d ProductDetails, source Source, raw []byte, createdAt, updatedAt time.Time) *Product {
	p := &Product{
		id:             id,
		name:           d.Name,
		normalizedName: textkey.Normalize(d.Name),
		brand:          d.Brand,
		macros:         d.Macros,
		imageURL:       d.ImageURL,
		source:         source,
		rawPayload:     raw,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
	if d.Barcode != "" {
		code := d.Barcode
		p.barcode = &code
	}
	return p
}

// Update replaces the mutable fields.
func (p *Product) Update(d ProductDetails) error {
	if err := p.apply(d); err != nil {
		return err
	}
	p.updatedAt = time.Now()
	return nil
}

// Drifted reports whether fetched catalog data differs from what is stored.
// Names compare on their normalized form and macros after rounding.
func (p *Product) Drifted(fetched ProductDetails) bool {
	if textkey.Normalize(fetched.Name) != p.normalizedName {
		return true
	}
	if strings.TrimSpace(fetched.Brand) != p.brand || strings.TrimSpace(fetched.ImageURL) != p.imageURL {
		return true
	}
	return fetched.Macros.Rounded() != p.macros
}

// Refresh applies fetched catalog data, keeping the barcode.
func (p *Product) Refresh(fetched ProductDetails, raw []byte) error {
	fetched.Barcode = p.Barcode()
	fetched.Macros = fetched.Macros.Rounded()
	if err := p.Update(fetched); err != nil {
		return err
	}
	if raw != nil {
		p.rawPayload = raw
	}
	p.AddEvent(ProductSyncedEvent{ProductID: p.id, Name: p.name, SyncedAt: p.updatedAt})
	return nil
}

func (p *Product) apply(d ProductDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ErrEmptyName
	}
	if err := d.Macros.validate(); err != nil {
		return err
	}
	code := strings.TrimSpace(d.Barcode)
	if code != "" && !LooksLikeBarcode(code) {
		return ErrInvalidBarcode
	}

	p.name = name
	p.normalizedName = textkey.Normalize(name)
	p.brand = strings.TrimSpace(d.Brand)
	p.macros = d.Macros
	p.imageURL = strings.TrimSpace(d.ImageURL)
	p.barcode = nil
	if code != "" {
		p.barcode = &code
	}
	return nil
}

// LooksLikeBarcode reports whether s is an EAN/UPC style code: 8 to 14 digits.
func LooksLikeBarcode(s string) bool {
	return len(s) >= 8 && len(s) <= 14 && isDigits(s)
}

func (p *Product) ID() uint               { return p.id }
func (p *Product) Name() string           { return p.name }
func (p *Product) NormalizedName() string { return p.normalizedName }
func (p *Product) Brand() string          { return p.brand }
func (p *Product) Macros() Macros         { return p.macros }
func (p *Product) ImageURL() string       { return p.imageURL }
func (p *Product) Source() Source         { return p.source }
func (p *Product) RawPayload() []byte     { return p.rawPayload }
func (p *Product) CreatedAt() time.Time   { return p.createdAt }
func (p *Product) UpdatedAt() time.Time   { return p.updatedAt }
func (p *Product) Ref() Ref               { return ProductRef(p.id) }

// Barcode returns the barcode or "" when the product has none.
func (p *Product) Barcode() string {
	if p.barcode == nil {
		return ""
	}
	return *p.barcode
}

// SetID is called by the repository after insert.
func (p *Product) SetID(id uint) { p.id = id }
