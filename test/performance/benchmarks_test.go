// Package performance holds benchmarks for the nutrition math and the
// recipe search query.
//go:build performance
// +build performance

package performance

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
	gormrepo "github.com/alchemorsel/pantry/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	"github.com/alchemorsel/pantry/pkg/textkey"
	"github.com/alchemorsel/pantry/test/testutils"
)

const (
	SmallDataset  = 100
	MediumDataset = 1000

	MaxSearchTime = 50 * time.Millisecond
)

// PerformanceMetrics holds performance measurement data
type PerformanceMetrics struct {
	StartTime    time.Time
	Duration     time.Duration
	MemoryBefore runtime.MemStats
	MemoryAfter  runtime.MemStats
}

// NewPerformanceMetrics starts a measurement
func NewPerformanceMetrics() *PerformanceMetrics {
	pm := &PerformanceMetrics{StartTime: time.Now()}
	runtime.GC()
	runtime.ReadMemStats(&pm.MemoryBefore)
	return pm
}

// Stop ends the measurement
func (pm *PerformanceMetrics) Stop() {
	pm.Duration = time.Since(pm.StartTime)
	runtime.ReadMemStats(&pm.MemoryAfter)
}

// AllocationsPerOp returns allocations per operation
func (pm *PerformanceMetrics) AllocationsPerOp(operations int) uint64 {
	if operations == 0 {
		return 0
	}
	return (pm.MemoryAfter.Mallocs - pm.MemoryBefore.Mallocs) / uint64(operations)
}

func BenchmarkNutritionCalculate(b *testing.B) {
	factory := testutils.NewCatalogFactory(7)
	for _, size := range []int{5, 20, 100} {
		items := make([]nutrition.Item, size)
		for i := range items {
			items[i] = factory.Macros().Item(float64(50 + i))
		}

		b.Run(fmt.Sprintf("Items_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				totals := nutrition.Calculate(items)
				_ = nutrition.Percentages(totals)
			}
		})
	}
}

func BenchmarkTextKey(b *testing.B) {
	titles := []string{
		"Crème Brûlée",
		"  Smoked   Paprika Chickpeas ",
		"Pão de Queijo com Requeijão",
	}

	b.Run("Normalize", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = textkey.Normalize(titles[i%len(titles)])
		}
	})

	b.Run("Slug", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = textkey.Slug(titles[i%len(titles)])
		}
	})
}

// seedRecipes stores n recipes built from a shared pool of products so that
// ingredient filters match a useful share of them.
func seedRecipes(b *testing.B, n int) (outbound.RecipeRepository, []*catalog.Product) {
	b.Helper()

	ctx := context.Background()
	db := testutils.NewSQLiteDB(b)
	products := gormrepo.NewProductRepository(db)
	recipes := gormrepo.NewRecipeRepository(db)
	factory := testutils.NewCatalogFactory(42)

	pool := make([]*catalog.Product, 20)
	for i := range pool {
		p, err := catalog.NewProduct(factory.ProductDetails())
		require.NoError(b, err)
		require.NoError(b, products.Create(ctx, p))
		pool[i] = p
	}

	for i := 0; i < n; i++ {
		lines := []recipe.IngredientLine{
			{Ref: pool[i%len(pool)].Ref(), Quantity: float64(100 + i%250)},
			{Ref: pool[(i*7+3)%len(pool)].Ref(), Quantity: float64(20 + i%80)},
		}
		title := fmt.Sprintf("Benchmark Recipe %04d", i)
		r, err := recipe.NewRecipe(recipe.Content{Title: title, Ingredients: lines}, textkey.Slug(title))
		require.NoError(b, err)
		require.NoError(b, recipes.Create(ctx, r))
	}
	return recipes, pool
}

func BenchmarkRecipeSearch(b *testing.B) {
	for _, size := range []int{SmallDataset, MediumDataset} {
		repo, pool := seedRecipes(b, size)

		filters := map[string]recipe.SearchFilter{
			"Unfiltered": {},
			"Ingredient": {Ingredients: []catalog.Ref{pool[0].Ref()}},
			"GramRange": {Grams: map[recipe.GramField]recipe.Range{
				recipe.GramCalories: {Min: nutrition.Ptr(200), Max: nutrition.Ptr(900)},
			}},
			"PercentSort": {
				Percent: map[recipe.PercentField]recipe.Range{recipe.PercentProtein: {Min: nutrition.Ptr(5)}},
				SortBy:  "percent_protein_desc",
			},
		}

		for name, f := range filters {
			f, err := f.Normalize()
			require.NoError(b, err)

			b.Run(fmt.Sprintf("%s_%d", name, size), func(b *testing.B) {
				ctx := context.Background()
				pm := NewPerformanceMetrics()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := repo.SearchRecipeIDs(ctx, f); err != nil {
						b.Fatal(err)
					}
				}
				b.StopTimer()
				pm.Stop()

				perOp := pm.Duration / time.Duration(b.N)
				b.ReportMetric(float64(pm.AllocationsPerOp(b.N)), "mallocs/op")
				if perOp > MaxSearchTime {
					b.Logf("search %s over %d recipes took %v per op, above %v", name, size, perOp, MaxSearchTime)
				}
			})
		}
	}
}
