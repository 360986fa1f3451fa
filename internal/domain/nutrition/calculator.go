// Package nutrition computes macro totals for a list of weighed ingredients.
//
// Nutrient values are stored per 100 g. A line contributes
// value * quantity / 100 to each total, missing values count as zero and
// totals are rounded to two decimals, half away from zero.
package nutrition

import "math"

// Atwater energy factors in kcal per gram.
const (
	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

// Item is one weighed ingredient. Nil macros are treated as zero.
type Item struct {
	Quantity float64
	Calories *float64
	Protein  *float64
	Fat      *float64
	Carbs    *float64
}

// Totals are the summed macros of a list of items.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Split is the share of calories supplied by each macro, in percent.
// Every field is nil when total calories are zero.
type Split struct {
	Protein *float64 `json:"percentProtein"`
	Carbs   *float64 `json:"percentCarbs"`
	Fat     *float64 `json:"percentFat"`
}

// Calculate sums the contribution of every item. It is total: an empty list
// yields zero totals and a zero quantity contributes nothing.
func Calculate(items []Item) Totals {
	var t Totals
	for _, it := range items {
		factor := it.Quantity / 100
		t.Calories += value(it.Calories) * factor
		t.Protein += value(it.Protein) * factor
		t.Fat += value(it.Fat) * factor
		t.Carbs += value(it.Carbs) * factor
	}
	return Totals{
		Calories: Round2(t.Calories),
		Protein:  Round2(t.Protein),
		Fat:      Round2(t.Fat),
		Carbs:    Round2(t.Carbs),
	}
}

// Percentages converts totals into a calorie split.
func Percentages(t Totals) Split {
	if t.Calories == 0 {
		return Split{}
	}
	return Split{
		Protein: percentOf(t.Protein*KcalPerGramProtein, t.Calories),
		Carbs:   percentOf(t.Carbs*KcalPerGramCarbs, t.Calories),
		Fat:     percentOf(t.Fat*KcalPerGramFat, t.Calories),
	}
}

// Round2 rounds to two decimals, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 {
	return &v
}

func percentOf(kcal, total float64) *float64 {
	p := Round2(kcal * 100 / total)
	return &p
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
