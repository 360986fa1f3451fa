// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
)

// ProductToModel converts a domain product to a GORM model
func ProductToModel(p *catalog.Product) *ProductModel {
	m := p.Macros()
	model := &ProductModel{
		ID:             p.ID(),
		Name:           p.Name(),
		NormalizedName: p.NormalizedName(),
		Brand:          p.Brand(),
		Calories:       m.Calories,
		Protein:        m.Protein,
		Fat:            m.Fat,
		Carbs:          m.Carbs,
		ImageURL:       p.ImageURL(),
		Source:         string(p.Source()),
		RawPayload:     RawJSON(p.RawPayload()),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}
	if code := p.Barcode(); code != "" {
		model.Barcode = &code
	}
	return model
}

// ModelToProduct converts a GORM model to a domain product
func ModelToProduct(model *ProductModel) *catalog.Product {
	details := catalog.ProductDetails{
		Name:     model.Name,
		Brand:    model.Brand,
		Macros:   catalog.Macros{Calories: model.Calories, Protein: model.Protein, Fat: model.Fat, Carbs: model.Carbs},
		ImageURL: model.ImageURL,
	}
	if model.Barcode != nil {
		details.Barcode = *model.Barcode
	}
	return catalog.RestoreProduct(model.ID, details, catalog.Source(model.Source), model.RawPayload, model.CreatedAt, model.UpdatedAt)
}

// CustomIngredientToModel converts a domain custom ingredient to a GORM model
func CustomIngredientToModel(c *catalog.CustomIngredient) *CustomIngredientModel {
	m := c.Macros()
	return &CustomIngredientModel{
		ID:             c.ID(),
		Name:           c.Name(),
		NormalizedName: c.NormalizedName(),
		Calories:       m.Calories,
		Protein:        m.Protein,
		Fat:            m.Fat,
		Carbs:          m.Carbs,
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	}
}

// ModelToCustomIngredient converts a GORM model to a domain custom ingredient
func ModelToCustomIngredient(model *CustomIngredientModel) *catalog.CustomIngredient {
	return catalog.RestoreCustomIngredient(
		model.ID,
		model.Name,
		catalog.Macros{Calories: model.Calories, Protein: model.Protein, Fat: model.Fat, Carbs: model.Carbs},
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// RecipeToModel converts a domain recipe to a GORM model. Ingredient refs
// that cannot be stored are reported as catalog.ErrInvalidRef.
func RecipeToModel(r *recipe.Recipe) (*RecipeModel, error) {
	model := &RecipeModel{
		ID:              r.ID(),
		Title:           r.Title(),
		NormalizedTitle: r.NormalizedTitle(),
		Slug:            r.Slug(),
		Steps:           StringSlice(r.Steps()),
		ImageURL:        r.ImageURL(),
		URLs:            StringSlice(r.URLs()),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}

	for i, line := range r.Ingredients() {
		row, err := lineToModel(r.ID(), i, line)
		if err != nil {
			return nil, err
		}
		model.Ingredients = append(model.Ingredients, row)
	}
	return model, nil
}

func lineToModel(recipeID uuid.UUID, position int, line recipe.IngredientLine) (RecipeIngredientModel, error) {
	row := RecipeIngredientModel{RecipeID: recipeID, Position: position, Quantity: line.Quantity}
	switch line.Ref.Kind {
	case catalog.RefProduct:
		id, ok := line.Ref.ProductID()
		if !ok {
			return row, catalog.ErrInvalidRef
		}
		row.ProductID = &id
	case catalog.RefCustom:
		id, ok := line.Ref.CustomID()
		if !ok {
			return row, catalog.ErrInvalidRef
		}
		row.CustomIngredientID = &id
	default:
		return row, catalog.ErrInvalidRef
	}
	return row, nil
}

// ModelToRecipe converts a GORM model to a domain recipe. Ingredient rows
// must be loaded in position order.
func ModelToRecipe(model *RecipeModel) *recipe.Recipe {
	lines := make([]recipe.IngredientLine, 0, len(model.Ingredients))
	for _, row := range model.Ingredients {
		var ref catalog.Ref
		switch {
		case row.ProductID != nil:
			ref = catalog.ProductRef(*row.ProductID)
		case row.CustomIngredientID != nil:
			ref = catalog.CustomRef(*row.CustomIngredientID)
		default:
			continue
		}
		lines = append(lines, recipe.IngredientLine{Ref: ref, Quantity: row.Quantity})
	}

	return recipe.Restore(model.ID, recipe.Content{
		Title:       model.Title,
		Steps:       []string(model.Steps),
		ImageURL:    model.ImageURL,
		URLs:        []string(model.URLs),
		Ingredients: lines,
	}, model.Slug, model.CreatedAt, model.UpdatedAt)
}
