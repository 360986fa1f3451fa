package catalog

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProductTestSuite struct {
	suite.Suite
}

func TestProductSuite(t *testing.T) {
	suite.Run(t, new(ProductTestSuite))
}

func (s *ProductTestSuite) TestNewProduct() {
	s.Run("ValidDetails_ShouldNormalizeName", func() {
		// Act
		p, err := NewProduct(ProductDetails{Name: "  Crème Fraîche ", Brand: "Elle&Vire", Barcode: "3451790012345"})

		// Assert
		s.Require().NoError(err)
		s.Equal("Crème Fraîche", p.Name())
		s.Equal("creme fraiche", p.NormalizedName())
		s.Equal("3451790012345", p.Barcode())
		s.Equal(SourceManual, p.Source())
	})

	s.Run("EmptyName_ShouldFail", func() {
		_, err := NewProduct(ProductDetails{Name: "   "})
		s.ErrorIs(err, ErrEmptyName)
	})

	s.Run("NegativeMacro_ShouldFail", func() {
		_, err := NewProduct(ProductDetails{Name: "x", Macros: Macros{Fat: -1}})
		s.ErrorIs(err, ErrNegativeNutrient)
	})

	s.Run("MalformedBarcode_ShouldFail", func() {
		_, err := NewProduct(ProductDetails{Name: "x", Barcode: "12ab"})
		s.ErrorIs(err, ErrInvalidBarcode)
	})
}

func (s *ProductTestSuite) TestExternalProductAndDrift() {
	s.Run("External_ShouldRoundMacros", func() {
		p, err := NewExternalProduct(ProductDetails{
			Name:    "Oat Drink",
			Barcode: "7394376616037",
			Macros:  Macros{Calories: 45.556, Protein: 1.004, Fat: 1.5, Carbs: 6.6666},
		}, []byte(`{"code":"7394376616037"}`))

		s.Require().NoError(err)
		s.Equal(SourceOpenFoodFacts, p.Source())
		s.Equal(Macros{Calories: 45.56, Protein: 1, Fat: 1.5, Carbs: 6.67}, p.Macros())
	})

	s.Run("SameDataAfterRounding_ShouldNotDrift", func() {
		p, _ := NewExternalProduct(ProductDetails{Name: "Oat Drink", Barcode: "7394376616037", Macros: Macros{Calories: 45.56}}, nil)

		drift := p.Drifted(ProductDetails{Name: "OAT DRINK", Macros: Macros{Calories: 45.559}})

		s.False(drift)
	})

	s.Run("ChangedBrand_ShouldDrift", func() {
		p, _ := NewExternalProduct(ProductDetails{Name: "Oat Drink", Brand: "Oatly", Barcode: "7394376616037"}, nil)

		s.True(p.Drifted(ProductDetails{Name: "Oat Drink", Brand: "Oatly!"}))
	})

	s.Run("Refresh_ShouldKeepBarcodeAndRaiseEvent", func() {
		p, _ := NewExternalProduct(ProductDetails{Name: "Oat Drink", Barcode: "7394376616037"}, nil)
		p.SetID(9)

		err := p.Refresh(ProductDetails{Name: "Oat Drink Barista", Macros: Macros{Calories: 59.999}}, []byte(`{}`))

		s.Require().NoError(err)
		s.Equal("7394376616037", p.Barcode())
		s.Equal(60.0, p.Macros().Calories)
		events := p.Events()
		s.Require().Len(events, 1)
		s.Equal("product.synced", events[0].EventName())
	})
}

func TestParseRef(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		raw  string
		want Ref
	}{
		{"42", Ref{Kind: RefProduct, ID: "42"}},
		{"product:42", Ref{Kind: RefProduct, ID: "42"}},
		{"custom:" + id.String(), Ref{Kind: RefCustom, ID: id.String()}},
		{id.String(), Ref{Kind: RefCustom, ID: id.String()}},
		{"custom:123", Ref{Kind: RefCustom, ID: "123"}},
	}
	for _, tc := range cases {
		got, err := ParseRef(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"", "  ", "recipe:1", "product:"} {
		_, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrInvalidRef, bad)
	}
}

func TestRefAccessors(t *testing.T) {
	id := uuid.New()

	pid, ok := ProductRef(12).ProductID()
	assert.True(t, ok)
	assert.Equal(t, uint(12), pid)

	cid, ok := CustomRef(id).CustomID()
	assert.True(t, ok)
	assert.Equal(t, id, cid)

	_, ok = Ref{Kind: RefCustom, ID: "not-a-uuid"}.CustomID()
	assert.False(t, ok)
	_, ok = CustomRef(id).ProductID()
	assert.False(t, ok)
}

func TestLooksLikeBarcode(t *testing.T) {
	assert.True(t, LooksLikeBarcode("12345678"))
	assert.True(t, LooksLikeBarcode("12345678901234"))
	assert.False(t, LooksLikeBarcode("1234567"))
	assert.False(t, LooksLikeBarcode("123456789012345"))
	assert.False(t, LooksLikeBarcode("1234567a"))
}

func TestCustomIngredient(t *testing.T) {
	c, err := NewCustomIngredient(" Homemade Pesto ", Macros{Calories: 450, Fat: 45})
	require.NoError(t, err)

	assert.Equal(t, "homemade pesto", c.NormalizedName())
	assert.Equal(t, RefCustom, c.Ref().Kind)

	require.NoError(t, c.Update("Pésto Rosso", Macros{Calories: 400}))
	assert.Equal(t, "pesto rosso", c.NormalizedName())
	assert.ErrorIs(t, c.Update("", Macros{}), ErrEmptyName)
}

func TestRefCanonical(t *testing.T) {
	id := uuid.New()

	got, err := Ref{Kind: RefProduct, ID: "007"}.Canonical()
	assert.NoError(t, err)
	assert.Equal(t, ProductRef(7), got)

	got, err = Ref{Kind: RefCustom, ID: strings.ToUpper(id.String())}.Canonical()
	assert.NoError(t, err)
	assert.Equal(t, CustomRef(id), got)

	_, err = Ref{Kind: RefCustom, ID: "123"}.Canonical()
	assert.ErrorIs(t, err, ErrInvalidRef)
}
