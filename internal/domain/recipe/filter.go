package recipe

import (
	"fmt"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// GramField is a per-recipe absolute total that can be range filtered.
type GramField string

const (
	GramCalories GramField = "calories"
	GramProtein  GramField = "protein"
	GramCarbs    GramField = "carbs"
	GramFat      GramField = "fat"
)

// PercentField is a per-recipe calorie share that can be range filtered.
type PercentField string

const (
	PercentProtein PercentField = "protein"
	PercentCarbs   PercentField = "carbs"
	PercentFat     PercentField = "fat"
)

// Range is an inclusive interval. A nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r Range) empty() bool { return r.Min == nil && r.Max == nil }

// Metric is a derived per-recipe column a sort key orders by.
type Metric string

const (
	MetricTitle          Metric = "title"
	MetricCalories       Metric = "total_calories"
	MetricProtein        Metric = "total_protein"
	MetricCarbs          Metric = "total_carbs"
	MetricFat            Metric = "total_fat"
	MetricPercentProtein Metric = "percent_protein"
	MetricPercentCarbs   Metric = "percent_carbs"
	MetricPercentFat     Metric = "percent_fat"
)

// Nullable reports whether the metric is NULL for zero-calorie recipes.
func (m Metric) Nullable() bool {
	return m == MetricPercentProtein || m == MetricPercentCarbs || m == MetricPercentFat
}

// SortKey is one of the supported orderings, e.g. "calories_desc".
type SortKey string

const DefaultSort SortKey = "title_asc"

type sortSpec struct {
	metric Metric
	desc   bool
}

var sortKeys = map[SortKey]sortSpec{
	"title_asc":            {MetricTitle, false},
	"title_desc":           {MetricTitle, true},
	"calories_asc":         {MetricCalories, false},
	"calories_desc":        {MetricCalories, true},
	"protein_asc":          {MetricProtein, false},
	"protein_desc":         {MetricProtein, true},
	"carbs_asc":            {MetricCarbs, false},
	"carbs_desc":           {MetricCarbs, true},
	"fat_asc":              {MetricFat, false},
	"fat_desc":             {MetricFat, true},
	"percent_protein_asc":  {MetricPercentProtein, false},
	"percent_protein_desc": {MetricPercentProtein, true},
	"percent_carbs_asc":    {MetricPercentCarbs, false},
	"percent_carbs_desc":   {MetricPercentCarbs, true},
	"percent_fat_asc":      {MetricPercentFat, false},
	"percent_fat_desc":     {MetricPercentFat, true},
}

// SortKeys lists every accepted key.
func SortKeys() []SortKey {
	keys := make([]SortKey, 0, len(sortKeys))
	for k := range sortKeys {
		keys = append(keys, k)
	}
	return keys
}

// Resolve returns the metric and direction of k.
func (k SortKey) Resolve() (Metric, bool, error) {
	entry, ok := sortKeys[k]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidSortKey, k)
	}
	return entry.metric, entry.desc, nil
}

// GramMetric maps a gram field to its aggregate column.
func GramMetric(f GramField) (Metric, bool) {
	switch f {
	case GramCalories:
		return MetricCalories, true
	case GramProtein:
		return MetricProtein, true
	case GramCarbs:
		return MetricCarbs, true
	case GramFat:
		return MetricFat, true
	}
	return "", false
}

// PercentMetric maps a percent field to its aggregate column.
func PercentMetric(f PercentField) (Metric, bool) {
	switch f {
	case PercentProtein:
		return MetricPercentProtein, true
	case PercentCarbs:
		return MetricPercentCarbs, true
	case PercentFat:
		return MetricPercentFat, true
	}
	return "", false
}

// SearchFilter is the full set of search constraints. All constraints are
// combined conjunctively.
type SearchFilter struct {
	Ingredients []catalog.Ref
	Grams       map[GramField]Range
	Percent     map[PercentField]Range
	SortBy      SortKey
	Limit       int
	Offset      int
}

// Normalize fills defaults and validates the filter.
func (f SearchFilter) Normalize() (SearchFilter, error) {
	if f.SortBy == "" {
		f.SortBy = DefaultSort
	}
	if _, _, err := f.SortBy.Resolve(); err != nil {
		return f, err
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		return f, fmt.Errorf("%w: %d", ErrInvalidLimit, f.Limit)
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		return f, fmt.Errorf("%w: %d", ErrInvalidOffset, f.Offset)
	}

	for field, r := range f.Grams {
		if _, ok := GramMetric(field); !ok {
			return f, fmt.Errorf("unknown gram field %q", field)
		}
		if err := checkRange(string(field), r); err != nil {
			return f, err
		}
	}
	for field, r := range f.Percent {
		if _, ok := PercentMetric(field); !ok {
			return f, fmt.Errorf("unknown percent field %q", field)
		}
		if err := checkRange(string(field), r); err != nil {
			return f, err
		}
	}
	return f, nil
}

// RangeConstraint is a resolved metric bound used by query compilers.
type RangeConstraint struct {
	Metric Metric
	Range  Range
}

// Constraints returns the non-empty ranges in a deterministic order.
func (f SearchFilter) Constraints() []RangeConstraint {
	var out []RangeConstraint
	for _, field := range []GramField{GramCalories, GramProtein, GramCarbs, GramFat} {
		if r, ok := f.Grams[field]; ok && !r.empty() {
			m, _ := GramMetric(field)
			out = append(out, RangeConstraint{Metric: m, Range: r})
		}
	}
	for _, field := range []PercentField{PercentProtein, PercentCarbs, PercentFat} {
		if r, ok := f.Percent[field]; ok && !r.empty() {
			m, _ := PercentMetric(field)
			out = append(out, RangeConstraint{Metric: m, Range: r})
		}
	}
	return out
}

func checkRange(name string, r Range) error {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%w: %s", ErrInvalidRange, name)
	}
	return nil
}
