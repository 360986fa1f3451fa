package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CalculatorTestSuite struct {
	suite.Suite
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorTestSuite))
}

func (s *CalculatorTestSuite) TestCalculate() {
	s.Run("TwoItems_ShouldSumScaledContributions", func() {
		// Arrange
		items := []Item{
			{Quantity: 200, Calories: Ptr(100), Protein: Ptr(10), Fat: Ptr(2), Carbs: Ptr(5)},
			{Quantity: 50, Calories: Ptr(400), Protein: Ptr(0), Fat: Ptr(40), Carbs: Ptr(0)},
		}

		// Act
		got := Calculate(items)

		// Assert
		s.Equal(Totals{Calories: 400, Protein: 20, Fat: 24, Carbs: 10}, got)
	})

	s.Run("EmptyList_ShouldReturnZeros", func() {
		s.Equal(Totals{}, Calculate(nil))
		s.Equal(Totals{}, Calculate([]Item{}))
	})

	s.Run("ZeroQuantity_ShouldContributeNothing", func() {
		items := []Item{{Quantity: 0, Calories: Ptr(900), Protein: Ptr(100)}}

		s.Equal(Totals{}, Calculate(items))
	})

	s.Run("MissingMacros_ShouldCountAsZero", func() {
		items := []Item{{Quantity: 150, Calories: Ptr(120)}}

		got := Calculate(items)

		s.Equal(180.0, got.Calories)
		s.Zero(got.Protein)
		s.Zero(got.Fat)
		s.Zero(got.Carbs)
	})

	s.Run("Rounding_ShouldKeepTwoDecimals", func() {
		items := []Item{
			{Quantity: 33, Calories: Ptr(123.457), Protein: Ptr(1.005)},
		}

		got := Calculate(items)

		s.Equal(40.74, got.Calories)
		s.Equal(0.33, got.Protein)
	})
}

func (s *CalculatorTestSuite) TestPercentages() {
	s.Run("ZeroCalories_ShouldBeNil", func() {
		split := Percentages(Totals{Protein: 5})

		s.Nil(split.Protein)
		s.Nil(split.Carbs)
		s.Nil(split.Fat)
	})

	s.Run("Atwater_ShouldUseFourFourNine", func() {
		split := Percentages(Totals{Calories: 400, Protein: 20, Fat: 20, Carbs: 30})

		require.NotNil(s.T(), split.Protein)
		s.Equal(20.0, *split.Protein)
		s.Equal(30.0, *split.Carbs)
		s.Equal(45.0, *split.Fat)
	})
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, -0.13, Round2(-0.125))
	assert.Equal(t, 2.0, Round2(1.999))
}
