package recipe

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
)

// RecipeTestSuite covers the recipe aggregate
type RecipeTestSuite struct {
	suite.Suite
}

func TestRecipeSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}

func validContent() Content {
	return Content{
		Title:    "Spaghetti Carbonara",
		Steps:    []string{"Boil pasta", "  ", "Mix eggs and cheese"},
		ImageURL: "https://img.example/carbonara.jpg",
		URLs:     []string{"https://example.org/carbonara"},
		Ingredients: []IngredientLine{
			{Ref: catalog.ProductRef(1), Quantity: 200},
			{Ref: catalog.CustomRef(uuid.New()), Quantity: 50},
		},
	}
}

func (suite *RecipeTestSuite) TestRecipeCreation() {
	suite.Run("ValidRecipe_ShouldCreateSuccessfully", func() {
		// Arrange
		content := validContent()

		// Act
		recipe, err := NewRecipe(content, "spaghetti-carbonara")

		// Assert
		require.NoError(suite.T(), err)
		assert.NotEqual(suite.T(), uuid.Nil, recipe.ID())
		assert.Equal(suite.T(), "spaghetti carbonara", recipe.NormalizedTitle())
		assert.Equal(suite.T(), []string{"Boil pasta", "Mix eggs and cheese"}, recipe.Steps())
		assert.Len(suite.T(), recipe.Ingredients(), 2)

		events := recipe.Events()
		require.Len(suite.T(), events, 1)
		created, ok := events[0].(RecipeCreatedEvent)
		assert.True(suite.T(), ok)
		assert.Equal(suite.T(), "spaghetti-carbonara", created.Slug)
		assert.Empty(suite.T(), recipe.Events())
	})

	suite.Run("EmptyTitle_ShouldReturnError", func() {
		content := validContent()
		content.Title = "   "

		recipe, err := NewRecipe(content, "x")

		assert.Nil(suite.T(), recipe)
		assert.ErrorIs(suite.T(), err, ErrEmptyTitle)
	})

	suite.Run("TitleTooLong_ShouldReturnError", func() {
		content := validContent()
		content.Title = strings.Repeat("a", 201)

		_, err := NewRecipe(content, "x")

		assert.ErrorIs(suite.T(), err, ErrTitleTooLong)
	})

	suite.Run("ZeroQuantity_ShouldReturnError", func() {
		content := validContent()
		content.Ingredients[0].Quantity = 0

		_, err := NewRecipe(content, "x")

		assert.ErrorIs(suite.T(), err, ErrInvalidQuantity)
	})

	suite.Run("MissingSlug_ShouldReturnError", func() {
		_, err := NewRecipe(validContent(), "")

		assert.ErrorIs(suite.T(), err, ErrEmptySlug)
	})
}

func (suite *RecipeTestSuite) TestRecipeUpdate() {
	suite.Run("Update_ShouldKeepSlugAndRenormalize", func() {
		// Arrange
		recipe, err := NewRecipe(validContent(), "spaghetti-carbonara")
		require.NoError(suite.T(), err)
		content := validContent()
		content.Title = "Spaghetti alla Carbonara Crémeuse"

		// Act
		err = recipe.Update(content)

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "spaghetti-carbonara", recipe.Slug())
		assert.Equal(suite.T(), "spaghetti alla carbonara cremeuse", recipe.NormalizedTitle())
	})

	suite.Run("Delete_ShouldRaiseEvent", func() {
		recipe, _ := NewRecipe(validContent(), "s")
		recipe.Events()

		recipe.MarkDeleted()

		events := recipe.Events()
		require.Len(suite.T(), events, 1)
		assert.Equal(suite.T(), "recipe.deleted", events[0].EventName())
	})
}

func TestSearchFilterNormalize(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		f, err := SearchFilter{}.Normalize()

		require.NoError(t, err)
		assert.Equal(t, DefaultSort, f.SortBy)
		assert.Equal(t, DefaultLimit, f.Limit)
		assert.Equal(t, 0, f.Offset)
	})

	t.Run("MaxLimitAccepted", func(t *testing.T) {
		f, err := SearchFilter{Limit: MaxLimit, Offset: 400}.Normalize()

		require.NoError(t, err)
		assert.Equal(t, MaxLimit, f.Limit)
		assert.Equal(t, 400, f.Offset)
	})

	t.Run("LimitAboveMaxRejected", func(t *testing.T) {
		_, err := SearchFilter{Limit: MaxLimit + 1}.Normalize()

		assert.ErrorIs(t, err, ErrInvalidLimit)
	})

	t.Run("NegativeOffsetRejected", func(t *testing.T) {
		_, err := SearchFilter{Offset: -3}.Normalize()

		assert.ErrorIs(t, err, ErrInvalidOffset)
	})

	t.Run("UnknownSortKey", func(t *testing.T) {
		_, err := SearchFilter{SortBy: "popularity_desc"}.Normalize()

		assert.ErrorIs(t, err, ErrInvalidSortKey)
	})

	t.Run("InvertedRange", func(t *testing.T) {
		lo, hi := 500.0, 100.0
		_, err := SearchFilter{Grams: map[GramField]Range{GramCalories: {Min: &lo, Max: &hi}}}.Normalize()

		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := SearchFilter{Percent: map[PercentField]Range{"sugar": {}}}.Normalize()

		assert.Error(t, err)
	})
}

func TestSortKeysResolve(t *testing.T) {
	assert.Len(t, SortKeys(), 16)

	m, desc, err := SortKey("percent_fat_desc").Resolve()
	require.NoError(t, err)
	assert.Equal(t, MetricPercentFat, m)
	assert.True(t, desc)
	assert.True(t, m.Nullable())

	m, desc, err = SortKey("title_asc").Resolve()
	require.NoError(t, err)
	assert.Equal(t, MetricTitle, m)
	assert.False(t, desc)
	assert.False(t, m.Nullable())
}

func TestConstraintsOrderAndSkipEmpty(t *testing.T) {
	v := 10.0
	f := SearchFilter{
		Grams:   map[GramField]Range{GramFat: {Max: &v}, GramCalories: {Min: &v}, GramProtein: {}},
		Percent: map[PercentField]Range{PercentCarbs: {Min: &v}},
	}

	got := f.Constraints()

	require.Len(t, got, 3)
	assert.Equal(t, MetricCalories, got[0].Metric)
	assert.Equal(t, MetricFat, got[1].Metric)
	assert.Equal(t, MetricPercentCarbs, got[2].Metric)
}
