// Package gorm provides GORM model definitions and repositories
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductModel represents the GORM model for products
type ProductModel struct {
	ID             uint    `gorm:"primaryKey;autoIncrement"`
	Name           string  `gorm:"type:varchar(255);not null"`
	NormalizedName string  `gorm:"type:varchar(255);not null;index"`
	Brand          string  `gorm:"type:varchar(255)"`
	Barcode        *string `gorm:"type:varchar(32);uniqueIndex"`
	Calories       float64 `gorm:"not null;default:0"`
	Protein        float64 `gorm:"not null;default:0"`
	Fat            float64 `gorm:"not null;default:0"`
	Carbs          float64 `gorm:"not null;default:0"`
	ImageURL       string  `gorm:"type:text"`
	Source         string  `gorm:"type:varchar(32);not null;default:'manual';index"`
	RawPayload     RawJSON `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CustomIngredientModel represents the GORM model for custom ingredients
type CustomIngredientModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name           string    `gorm:"type:varchar(255);not null"`
	NormalizedName string    `gorm:"type:varchar(255);not null;index"`
	Calories       float64   `gorm:"not null;default:0"`
	Protein        float64   `gorm:"not null;default:0"`
	Fat            float64   `gorm:"not null;default:0"`
	Carbs          float64   `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID              uuid.UUID   `gorm:"type:char(36);primaryKey"`
	Title           string      `gorm:"type:varchar(255);not null"`
	NormalizedTitle string      `gorm:"type:varchar(255);not null;index"`
	Slug            string      `gorm:"type:varchar(255);not null;uniqueIndex"`
	Steps           StringSlice `gorm:"type:text"`
	ImageURL        string      `gorm:"type:text"`
	URLs            StringSlice `gorm:"column:urls;type:text"`
	CreatedAt       time.Time   `gorm:"index"`
	UpdatedAt       time.Time

	Ingredients []RecipeIngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// RecipeIngredientModel is one weighed line of a recipe. Exactly one of
// ProductID and CustomIngredientID is set.
type RecipeIngredientModel struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement"`
	RecipeID           uuid.UUID  `gorm:"type:char(36);not null;index"`
	Position           int        `gorm:"not null;default:0"`
	ProductID          *uint      `gorm:"index"`
	CustomIngredientID *uuid.UUID `gorm:"type:char(36);index;check:chk_recipe_ingredients_ref,(product_id IS NULL) <> (custom_ingredient_id IS NULL)"`
	Quantity           float64    `gorm:"not null;check:chk_recipe_ingredients_quantity,quantity > 0"`

	Product          *ProductModel          `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	CustomIngredient *CustomIngredientModel `gorm:"foreignKey:CustomIngredientID;constraint:OnDelete:RESTRICT"`
}

// DiaryEntryModel stores a logged food with its macro snapshot
type DiaryEntryModel struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID  `gorm:"type:char(36);not null;index:idx_diary_user_date"`
	Date      time.Time  `gorm:"type:date;not null;index:idx_diary_user_date"`
	Type      string     `gorm:"type:varchar(16);not null"`
	Name      string     `gorm:"type:varchar(255);not null"`
	Quantity  float64    `gorm:"not null"`
	Calories  float64    `gorm:"not null;default:0"`
	Protein   float64    `gorm:"not null;default:0"`
	Fat       float64    `gorm:"not null;default:0"`
	Carbs     float64    `gorm:"not null;default:0"`
	ProductID *uint      `gorm:"index"`
	RecipeID  *uuid.UUID `gorm:"type:char(36);index"`
	CreatedAt time.Time
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&ProductModel{},
		&CustomIngredientModel{},
		&RecipeModel{},
		&RecipeIngredientModel{},
		&DiaryEntryModel{},
	}
}

// AutoMigrate creates or updates the schema from the models. Production
// PostgreSQL uses the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// StringSlice stores a string list as a JSON array
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// RawJSON keeps an upstream payload verbatim
type RawJSON []byte

func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into RawJSON", value)
	}
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

// BeforeCreate hook for CustomIngredientModel
func (c *CustomIngredientModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for DiaryEntryModel
func (d *DiaryEntryModel) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (ProductModel) TableName() string {
	return "products"
}

func (CustomIngredientModel) TableName() string {
	return "custom_ingredients"
}

func (RecipeModel) TableName() string {
	return "recipes"
}

func (RecipeIngredientModel) TableName() string {
	return "recipe_ingredients"
}

func (DiaryEntryModel) TableName() string {
	return "diary_entries"
}
