package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	gormModels "github.com/alchemorsel/pantry/internal/infrastructure/persistence/gorm"
)

func TestSetupAndSeed(t *testing.T) {
	db, err := SetupDatabase("", logger.Silent)
	require.NoError(t, err)

	require.NoError(t, SeedDatabase(db))
	// second run is a no-op
	require.NoError(t, SeedDatabase(db))

	var products, recipes, lines int64
	db.Model(&gormModels.ProductModel{}).Count(&products)
	db.Model(&gormModels.RecipeModel{}).Count(&recipes)
	db.Model(&gormModels.RecipeIngredientModel{}).Count(&lines)

	assert.EqualValues(t, 3, products)
	assert.EqualValues(t, 2, recipes)
	assert.EqualValues(t, 5, lines)
}

func TestRecipeLineCheckConstraint(t *testing.T) {
	db, err := SetupDatabase("", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, SeedDatabase(db))

	var r gormModels.RecipeModel
	require.NoError(t, db.First(&r).Error)

	// neither reference set
	err = db.Omit("Product", "CustomIngredient").Create(&gormModels.RecipeIngredientModel{RecipeID: r.ID, Quantity: 10}).Error
	assert.Error(t, err)

	// non-positive quantity
	var p gormModels.ProductModel
	require.NoError(t, db.First(&p).Error)
	err = db.Omit("Product", "CustomIngredient").Create(&gormModels.RecipeIngredientModel{RecipeID: r.ID, ProductID: &p.ID, Quantity: 0}).Error
	assert.Error(t, err)
}
