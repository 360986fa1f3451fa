// Package diary models food diary entries. An entry stores a copy of the
// macros it was created with; later edits to the product or recipe never
// change a logged entry.
package diary

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
)

// EntryType says what was eaten.
type EntryType string

const (
	EntryProduct EntryType = "PRODUCT"
	EntryRecipe  EntryType = "RECIPE"
)

var (
	ErrInvalidQuantity = errors.New("diary quantity must be greater than 0")
	ErrMissingUser     = errors.New("diary entry needs a user")
)

// Entry is one logged food.
type Entry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Date      time.Time
	Type      EntryType
	Name      string
	Quantity  float64
	Macros    nutrition.Totals
	ProductID *uint
	RecipeID  *uuid.UUID
	CreatedAt time.Time
}

// FromProduct logs quantity grams of p, snapshotting its macros.
func FromProduct(userID uuid.UUID, date time.Time, p *catalog.Product, quantity float64) (*Entry, error) {
	if err := check(userID, quantity); err != nil {
		return nil, err
	}
	id := p.ID()
	return &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      day(date),
		Type:      EntryProduct,
		Name:      p.Name(),
		Quantity:  quantity,
		Macros:    nutrition.Calculate([]nutrition.Item{p.Macros().Item(quantity)}),
		ProductID: &id,
		CreatedAt: time.Now(),
	}, nil
}

// FromRecipe logs a portion of r. portion is the fraction of the whole
// recipe eaten; totals are the recipe's computed macros.
func FromRecipe(userID uuid.UUID, date time.Time, r *recipe.Recipe, totals nutrition.Totals, portion float64) (*Entry, error) {
	if err := check(userID, portion); err != nil {
		return nil, err
	}
	id := r.ID()
	return &Entry{
		ID:       uuid.New(),
		UserID:   userID,
		Date:     day(date),
		Type:     EntryRecipe,
		Name:     r.Title(),
		Quantity: portion,
		Macros: nutrition.Totals{
			Calories: nutrition.Round2(totals.Calories * portion),
			Protein:  nutrition.Round2(totals.Protein * portion),
			Fat:      nutrition.Round2(totals.Fat * portion),
			Carbs:    nutrition.Round2(totals.Carbs * portion),
		},
		RecipeID:  &id,
		CreatedAt: time.Now(),
	}, nil
}

// DayTotals sums the snapshotted macros of entries.
func DayTotals(entries []*Entry) nutrition.Totals {
	var t nutrition.Totals
	for _, e := range entries {
		t.Calories += e.Macros.Calories
		t.Protein += e.Macros.Protein
		t.Fat += e.Macros.Fat
		t.Carbs += e.Macros.Carbs
	}
	return nutrition.Totals{
		Calories: nutrition.Round2(t.Calories),
		Protein:  nutrition.Round2(t.Protein),
		Fat:      nutrition.Round2(t.Fat),
		Carbs:    nutrition.Round2(t.Carbs),
	}
}

func check(userID uuid.UUID, quantity float64) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
