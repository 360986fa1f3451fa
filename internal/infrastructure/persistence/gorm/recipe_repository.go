// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) outbound.RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create inserts the recipe and its ingredient lines in one transaction.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	model, err := RecipeToModel(rec)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Ingredients").Create(model).Error; err != nil {
			return err
		}
		return insertLines(tx, model.Ingredients)
	})
	if isUniqueViolation(err) {
		return recipe.ErrSlugTaken
	}
	return err
}

// Update rewrites the recipe row and replaces its ingredient lines.
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	model, err := RecipeToModel(rec)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).Select("*").Omit("id", "created_at", "Ingredients").Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return recipe.ErrRecipeNotFound
		}
		if err := tx.Where("recipe_id = ?", model.ID).Delete(&RecipeIngredientModel{}).Error; err != nil {
			return err
		}
		return insertLines(tx, model.Ingredients)
	})
	if isUniqueViolation(err) {
		return recipe.ErrSlugTaken
	}
	return err
}

// Delete removes the recipe and its lines.
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredientModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&RecipeModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return recipe.ErrRecipeNotFound
		}
		return nil
	})
}

func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *RecipeRepository) FindBySlug(ctx context.Context, slug string) (*recipe.Recipe, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *RecipeRepository) findOne(ctx context.Context, query string, arg interface{}) (*recipe.Recipe, error) {
	var model RecipeModel

	err := r.db.WithContext(ctx).
		Preload("Ingredients", orderedLines).
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrRecipeNotFound
		}
		return nil, err
	}
	return ModelToRecipe(&model), nil
}

// FindByIDs loads recipes in no particular order.
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []RecipeModel

	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Read).
		Preload("Ingredients", orderedLines).
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipes := make([]*recipe.Recipe, len(models))
	for i := range models {
		recipes[i] = ModelToRecipe(&models[i])
	}
	return recipes, nil
}

func (r *RecipeRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RecipeModel{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// SearchRecipeIDs runs the aggregation query and returns hits in result order.
func (r *RecipeRepository) SearchRecipeIDs(ctx context.Context, filter recipe.SearchFilter) ([]outbound.SearchHit, error) {
	q, err := compileSearch(filter)
	if err != nil {
		return nil, err
	}

	// A shared session so the nested subqueries each get their own statement.
	db := r.db.WithContext(ctx).Clauses(dbresolver.Read).Session(&gorm.Session{})

	var rows []searchRow
	if err := q.build(db).Scan(&rows).Error; err != nil {
		return nil, err
	}

	hits := make([]outbound.SearchHit, len(rows))
	for i, row := range rows {
		hits[i] = row.hit()
	}
	return hits, nil
}

func insertLines(tx *gorm.DB, lines []RecipeIngredientModel) error {
	if len(lines) == 0 {
		return nil
	}
	return tx.Omit("Product", "CustomIngredient").Create(&lines).Error
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
