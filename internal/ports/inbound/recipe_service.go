// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
)

// RecipeService defines the recipe use cases
type RecipeService interface {
	CreateRecipe(ctx context.Context, cmd RecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, id uuid.UUID, cmd RecipeCommand) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID) error

	GetRecipe(ctx context.Context, slug string) (*RecipeDTO, error)
	SearchRecipes(ctx context.Context, filter recipe.SearchFilter) (*SearchResult, error)
}

// RecipeCommand carries the editable fields of a recipe.
type RecipeCommand struct {
	Title       string
	Steps       []string
	ImageURL    string
	URLs        []string
	Ingredients []IngredientLineCommand
}

// IngredientLineCommand references an ingredient in wire form, e.g.
// "product:12", "custom:<uuid>" or an untagged id.
type IngredientLineCommand struct {
	Ref      string
	Quantity float64
}

// RecipeDTO is the recipe as returned to clients
type RecipeDTO struct {
	ID          uuid.UUID           `json:"id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Steps       []string            `json:"steps"`
	ImageURL    string              `json:"imageUrl,omitempty"`
	URLs        []string            `json:"urls"`
	Ingredients []IngredientLineDTO `json:"ingredients,omitempty"`
	Nutrition   NutritionDTO        `json:"nutrition"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// IngredientLineDTO is a resolved ingredient line.
type IngredientLineDTO struct {
	Ref      string  `json:"ref"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// NutritionDTO is the macro panel of a recipe.
type NutritionDTO struct {
	nutrition.Totals
	nutrition.Split
}

// SearchResult is one page of recipe search.
type SearchResult struct {
	Recipes []RecipeDTO `json:"recipes"`
	HasMore bool        `json:"hasMore"`
}
