package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// ProductRepository implements the product repository interface using GORM
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) outbound.ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts p and stores the generated id back on it.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	model := ProductToModel(p)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrBarcodeTaken
		}
		return err
	}

	p.SetID(model.ID)
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	model := ProductToModel(p)

	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return catalog.ErrBarcodeTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&ProductModel{}, id)
	if isForeignKeyViolation(result.Error) {
		return catalog.ErrProductInUse
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*catalog.Product, error) {
	var model ProductModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return ModelToProduct(&model), nil
}

func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	var model ProductModel

	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return ModelToProduct(&model), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return toProducts(models), nil
}

// ListSyncable returns catalog-sourced products with a barcode, oldest first.
func (r *ProductRepository) ListSyncable(ctx context.Context) ([]*catalog.Product, error) {
	var models []ProductModel

	err := r.db.WithContext(ctx).
		Where("source = ? AND barcode IS NOT NULL AND barcode <> ''", string(catalog.SourceOpenFoodFacts)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toProducts(models), nil
}

// SearchByName matches a substring of the normalized name. Barcodes match
// exactly so a scanned code finds its product.
func (r *ProductRepository) SearchByName(ctx context.Context, normalizedQuery string, limit int) ([]*catalog.Product, error) {
	var models []ProductModel

	err := r.db.WithContext(ctx).
		Where(`normalized_name LIKE ? ESCAPE '\' OR barcode = ?`, "%"+escapeLike(normalizedQuery)+"%", normalizedQuery).
		Order("normalized_name ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toProducts(models), nil
}

func (r *ProductRepository) IsReferenced(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RecipeIngredientModel{}).
		Where("product_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func toProducts(models []ProductModel) []*catalog.Product {
	products := make([]*catalog.Product, len(models))
	for i := range models {
		products[i] = ModelToProduct(&models[i])
	}
	return products
}
