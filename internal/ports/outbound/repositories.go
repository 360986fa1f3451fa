// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
)

// ProductRepository persists products.
type ProductRepository interface {
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*catalog.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*catalog.Product, error)
	// ListSyncable returns catalog-sourced products that carry a barcode.
	ListSyncable(ctx context.Context) ([]*catalog.Product, error)
	SearchByName(ctx context.Context, normalizedQuery string, limit int) ([]*catalog.Product, error)
	IsReferenced(ctx context.Context, id uint) (bool, error)
}

// CustomIngredientRepository persists custom ingredients.
type CustomIngredientRepository interface {
	Create(ctx context.Context, c *catalog.CustomIngredient) error
	Update(ctx context.Context, c *catalog.CustomIngredient) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.CustomIngredient, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.CustomIngredient, error)
	SearchByName(ctx context.Context, normalizedQuery string, limit int) ([]*catalog.CustomIngredient, error)
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
}

// SearchHit is one row of the aggregation query: a recipe id with its
// derived totals, in result order.
type SearchHit struct {
	RecipeID uuid.UUID
	Totals   nutrition.Totals
	Split    nutrition.Split
}

// RecipeRepository persists recipes and runs the nutritional search.
type RecipeRepository interface {
	// Create fails with recipe.ErrSlugTaken when the slug index rejects the row.
	Create(ctx context.Context, r *recipe.Recipe) error
	Update(ctx context.Context, r *recipe.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	FindBySlug(ctx context.Context, slug string) (*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// SearchRecipeIDs returns at most filter.Limit+1 hits so callers can
	// detect a further page. The filter must already be normalized.
	SearchRecipeIDs(ctx context.Context, filter recipe.SearchFilter) ([]SearchHit, error)
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
