// Package sqlite provides SQLite database setup for development and tests
package sqlite

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gormModels "github.com/alchemorsel/pantry/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/pantry/pkg/textkey"
)

// SetupDatabase opens the SQLite database at dbPath and migrates the schema.
// An empty path opens a private in-memory database.
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dbPath, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := gormModels.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// SeedDatabase populates an empty database with demo data
func SeedDatabase(db *gorm.DB) error {
	var count int64
	if err := db.Model(&gormModels.ProductModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		oats := product("Rolled Oats", "5000168001142", 379, 13.2, 6.5, 67.7)
		milk := product("Semi-skimmed Milk", "5051413553405", 50, 3.6, 1.8, 4.8)
		banana := product("Banana", "", 89, 1.1, 0.3, 22.8)
		for _, p := range []*gormModels.ProductModel{oats, milk, banana} {
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to create demo product: %w", err)
			}
		}

		pesto := &gormModels.CustomIngredientModel{
			Name:           "Homemade Basil Pesto",
			NormalizedName: textkey.Normalize("Homemade Basil Pesto"),
			Calories:       458,
			Protein:        5.1,
			Fat:            47,
			Carbs:          4.3,
		}
		if err := tx.Create(pesto).Error; err != nil {
			return fmt.Errorf("failed to create demo ingredient: %w", err)
		}

		porridge := recipe("Banana Porridge", "Simmer oats in milk.", "Slice the banana on top.")
		porridge.Ingredients = []gormModels.RecipeIngredientModel{
			{Position: 0, ProductID: &oats.ID, Quantity: 60},
			{Position: 1, ProductID: &milk.ID, Quantity: 250},
			{Position: 2, ProductID: &banana.ID, Quantity: 120},
		}
		pasta := recipe("Pesto Oat Crumble", "Toast the oats.", "Fold in the pesto.")
		pasta.Ingredients = []gormModels.RecipeIngredientModel{
			{Position: 0, ProductID: &oats.ID, Quantity: 40},
			{Position: 1, CustomIngredientID: &pesto.ID, Quantity: 30},
		}

		for _, r := range []*gormModels.RecipeModel{porridge, pasta} {
			lines := r.Ingredients
			r.Ingredients = nil
			if err := tx.Create(r).Error; err != nil {
				return fmt.Errorf("failed to create demo recipe: %w", err)
			}
			for i := range lines {
				lines[i].RecipeID = r.ID
			}
			if err := tx.Omit("Product", "CustomIngredient").Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to create demo recipe lines: %w", err)
			}
		}
		return nil
	})
}

func product(name, barcode string, kcal, protein, fat, carbs float64) *gormModels.ProductModel {
	p := &gormModels.ProductModel{
		Name:           name,
		NormalizedName: textkey.Normalize(name),
		Calories:       kcal,
		Protein:        protein,
		Fat:            fat,
		Carbs:          carbs,
		Source:         "manual",
	}
	if barcode != "" {
		p.Barcode = &barcode
	}
	return p
}

func recipe(title string, steps ...string) *gormModels.RecipeModel {
	return &gormModels.RecipeModel{
		ID:              uuid.New(),
		Title:           title,
		NormalizedTitle: textkey.Normalize(title),
		Slug:            textkey.Slug(title),
		Steps:           steps,
		URLs:            gormModels.StringSlice{},
	}
}
