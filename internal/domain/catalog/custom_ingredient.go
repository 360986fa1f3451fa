package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/pkg/textkey"
)

// CustomIngredient is an admin-entered ingredient with no barcode.
type CustomIngredient struct {
	id             uuid.UUID
	name           string
	normalizedName string
	macros         Macros
	createdAt      time.Time
	updatedAt      time.Time
}

func NewCustomIngredient(name string, macros Macros) (*CustomIngredient, error) {
	c := &CustomIngredient{id: uuid.New(), createdAt: time.Now(), updatedAt: time.Now()}
	if err := c.apply(name, macros); err != nil {
		return nil, err
	}
	return c, nil
}

// RestoreCustomIngredient rebuilds an ingredient from storage.
func RestoreCustomIngredient(id uuid.UUID, name string, macros Macros, createdAt, updatedAt time.Time) *CustomIngredient {
	return &CustomIngredient{
		id:             id,
		name:           name,
		normalizedName: textkey.Normalize(name),
		macros:         macros,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (c *CustomIngredient) Update(name string, macros Macros) error {
	if err := c.apply(name, macros); err != nil {
		return err
	}
	c.updatedAt = time.Now()
	return nil
}

func (c *CustomIngredient) apply(name string, macros Macros) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := macros.validate(); err != nil {
		return err
	}
	c.name = name
	c.normalizedName = textkey.Normalize(name)
	c.macros = macros
	return nil
}

func (c *CustomIngredient) ID() uuid.UUID          { return c.id }
func (c *CustomIngredient) Name() string           { return c.name }
func (c *CustomIngredient) NormalizedName() string { return c.normalizedName }
func (c *CustomIngredient) Macros() Macros         { return c.macros }
func (c *CustomIngredient) CreatedAt() time.Time   { return c.createdAt }
func (c *CustomIngredient) UpdatedAt() time.Time   { return c.updatedAt }
func (c *CustomIngredient) Ref() Ref               { return CustomRef(c.id) }
