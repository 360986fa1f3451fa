package gorm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// CustomIngredientRepository implements the custom ingredient repository using GORM
type CustomIngredientRepository struct {
	db *gorm.DB
}

func NewCustomIngredientRepository(db *gorm.DB) outbound.CustomIngredientRepository {
	return &CustomIngredientRepository{db: db}
}

func (r *CustomIngredientRepository) Create(ctx context.Context, c *catalog.CustomIngredient) error {
	return r.db.WithContext(ctx).Create(CustomIngredientToModel(c)).Error
}

func (r *CustomIngredientRepository) Update(ctx context.Context, c *catalog.CustomIngredient) error {
	model := CustomIngredientToModel(c)
	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrIngredientNotFound
	}
	return nil
}

func (r *CustomIngredientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&CustomIngredientModel{}, "id = ?", id)
	if isForeignKeyViolation(result.Error) {
		return catalog.ErrProductInUse
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrIngredientNotFound
	}
	return nil
}

func (r *CustomIngredientRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.CustomIngredient, error) {
	var model CustomIngredientModel

	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrIngredientNotFound
		}
		return nil, err
	}
	return ModelToCustomIngredient(&model), nil
}

func (r *CustomIngredientRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.CustomIngredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []CustomIngredientModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return toCustomIngredients(models), nil
}

func (r *CustomIngredientRepository) SearchByName(ctx context.Context, normalizedQuery string, limit int) ([]*catalog.CustomIngredient, error) {
	var models []CustomIngredientModel

	err := r.db.WithContext(ctx).
		Where(`normalized_name LIKE ? ESCAPE '\'`, "%"+escapeLike(normalizedQuery)+"%").
		Order("normalized_name ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toCustomIngredients(models), nil
}

func (r *CustomIngredientRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RecipeIngredientModel{}).
		Where("custom_ingredient_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func toCustomIngredients(models []CustomIngredientModel) []*catalog.CustomIngredient {
	out := make([]*catalog.CustomIngredient, len(models))
	for i := range models {
		out[i] = ModelToCustomIngredient(&models[i])
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user input. Queries using it
// must declare ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
