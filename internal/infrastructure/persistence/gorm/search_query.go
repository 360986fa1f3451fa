package gorm

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// recipeMacros derives per-recipe macro totals in one pass over the
// ingredient lines. Recipes without lines get zero totals.
func recipeMacros(db *gorm.DB) *gorm.DB {
	return db.Table("recipes AS r").
		Select(`r.id AS recipe_id, r.normalized_title AS title,
			COALESCE(SUM(COALESCE(p.calories, c.calories, 0) * ri.quantity / 100.0), 0) AS total_calories,
			COALESCE(SUM(COALESCE(p.protein, c.protein, 0) * ri.quantity / 100.0), 0) AS total_protein,
			COALESCE(SUM(COALESCE(p.carbs, c.carbs, 0) * ri.quantity / 100.0), 0) AS total_carbs,
			COALESCE(SUM(COALESCE(p.fat, c.fat, 0) * ri.quantity / 100.0), 0) AS total_fat`).
		Joins("LEFT JOIN recipe_ingredients ri ON ri.recipe_id = r.id").
		Joins("LEFT JOIN products p ON p.id = ri.product_id").
		Joins("LEFT JOIN custom_ingredients c ON c.id = ri.custom_ingredient_id").
		Group("r.id, r.normalized_title")
}

// recipeStats adds the calorie shares. They are NULL when a recipe has no
// calories.
func recipeStats(db *gorm.DB) *gorm.DB {
	return db.Table("(?) AS recipe_macros", recipeMacros(db)).
		Select(`recipe_id, title, total_calories, total_protein, total_carbs, total_fat,
			CASE WHEN total_calories = 0 THEN NULL ELSE total_protein * 4 * 100.0 / total_calories END AS percent_protein,
			CASE WHEN total_calories = 0 THEN NULL ELSE total_carbs * 4 * 100.0 / total_calories END AS percent_carbs,
			CASE WHEN total_calories = 0 THEN NULL ELSE total_fat * 9 * 100.0 / total_calories END AS percent_fat`)
}

// metricColumns whitelists the identifiers that may be spliced into SQL.
var metricColumns = map[recipe.Metric]string{
	recipe.MetricTitle:          "title",
	recipe.MetricCalories:       "total_calories",
	recipe.MetricProtein:        "total_protein",
	recipe.MetricCarbs:          "total_carbs",
	recipe.MetricFat:            "total_fat",
	recipe.MetricPercentProtein: "percent_protein",
	recipe.MetricPercentCarbs:   "percent_carbs",
	recipe.MetricPercentFat:     "percent_fat",
}

type columnRange struct {
	column string
	bounds recipe.Range
}

// searchQuery is a normalized SearchFilter resolved against metricColumns.
// Every value reaches the database as a bound parameter.
type searchQuery struct {
	ingredients []catalog.Ref
	ranges      []columnRange
	sortColumn  string
	nullable    bool
	desc        bool
	limit       int
	offset      int
}

func compileSearch(f recipe.SearchFilter) (*searchQuery, error) {
	q := &searchQuery{ingredients: f.Ingredients, limit: f.Limit + 1, offset: f.Offset}

	for _, c := range f.Constraints() {
		col, ok := metricColumns[c.Metric]
		if !ok {
			return nil, fmt.Errorf("no column for metric %q", c.Metric)
		}
		q.ranges = append(q.ranges, columnRange{column: col, bounds: c.Range})
	}

	metric, desc, err := f.SortBy.Resolve()
	if err != nil {
		return nil, err
	}
	q.sortColumn = metricColumns[metric]
	q.nullable = metric.Nullable()
	q.desc = desc
	return q, nil
}

// build applies the query to db. The result selects one row per matching
// recipe, fetching one row past the page so callers can tell if more exist.
func (q *searchQuery) build(db *gorm.DB) *gorm.DB {
	query := db.Table("(?) AS recipe_stats", recipeStats(db)).
		Select("recipe_id, total_calories, total_protein, total_carbs, total_fat, percent_protein, percent_carbs, percent_fat")

	for _, ref := range q.ingredients {
		query = requireIngredient(query, db, ref)
	}

	for _, r := range q.ranges {
		if r.bounds.Min != nil {
			query = query.Where(r.column+" >= ?", *r.bounds.Min)
		}
		if r.bounds.Max != nil {
			query = query.Where(r.column+" <= ?", *r.bounds.Max)
		}
	}

	// NULL shares go last whatever the direction; recipe id makes the
	// order total.
	if q.nullable {
		query = query.Order("CASE WHEN " + q.sortColumn + " IS NULL THEN 1 ELSE 0 END ASC")
	}
	direction := "ASC"
	if q.desc {
		direction = "DESC"
	}
	query = query.Order(q.sortColumn + " " + direction).Order("recipe_id ASC")

	return query.Limit(q.limit).Offset(q.offset)
}

// requireIngredient adds one EXISTS per reference so multiple references
// intersect. A reference whose id cannot exist matches nothing.
func requireIngredient(query, db *gorm.DB, ref catalog.Ref) *gorm.DB {
	lines := func(column string, id interface{}) *gorm.DB {
		return db.Table("recipe_ingredients AS x").Select("1").
			Where("x.recipe_id = recipe_stats.recipe_id").
			Where("x."+column+" = ?", id)
	}

	switch ref.Kind {
	case catalog.RefProduct:
		if id, ok := ref.ProductID(); ok {
			return query.Where("EXISTS (?)", lines("product_id", id))
		}
	case catalog.RefCustom:
		if id, ok := ref.CustomID(); ok {
			return query.Where("EXISTS (?)", lines("custom_ingredient_id", id))
		}
	}
	return query.Where("1 = 0")
}

// searchRow is one scanned row of the statistics query.
type searchRow struct {
	RecipeID       uuid.UUID `gorm:"column:recipe_id"`
	TotalCalories  float64   `gorm:"column:total_calories"`
	TotalProtein   float64   `gorm:"column:total_protein"`
	TotalCarbs     float64   `gorm:"column:total_carbs"`
	TotalFat       float64   `gorm:"column:total_fat"`
	PercentProtein *float64  `gorm:"column:percent_protein"`
	PercentCarbs   *float64  `gorm:"column:percent_carbs"`
	PercentFat     *float64  `gorm:"column:percent_fat"`
}

func (r searchRow) hit() outbound.SearchHit {
	return outbound.SearchHit{
		RecipeID: r.RecipeID,
		Totals: nutrition.Totals{
			Calories: nutrition.Round2(r.TotalCalories),
			Protein:  nutrition.Round2(r.TotalProtein),
			Carbs:    nutrition.Round2(r.TotalCarbs),
			Fat:      nutrition.Round2(r.TotalFat),
		},
		Split: nutrition.Split{
			Protein: round2Ptr(r.PercentProtein),
			Carbs:   round2Ptr(r.PercentCarbs),
			Fat:     round2Ptr(r.PercentFat),
		},
	}
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return nutrition.Ptr(nutrition.Round2(*v))
}
