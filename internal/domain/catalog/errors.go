package catalog

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrIngredientNotFound = errors.New("custom ingredient not found")
	ErrProductInUse       = errors.New("ingredient is referenced by a recipe")
	ErrBarcodeTaken       = errors.New("barcode already exists")
	ErrInvalidRef         = errors.New("invalid ingredient reference")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrNegativeNutrient   = errors.New("nutrient values cannot be negative")
	ErrInvalidBarcode     = errors.New("barcode must be 8 to 14 digits")
)
