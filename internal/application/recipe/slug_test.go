package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlugs map[string]bool

func (f fakeSlugs) SlugExists(_ context.Context, slug string) (bool, error) {
	return f[slug], nil
}

type failingSlugs struct{}

func (failingSlugs) SlugExists(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestSlugGenerator(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		taken    fakeSlugs
		title    string
		expected string
	}{
		{"FreeBase", fakeSlugs{}, "Existing Recipe", "existing-recipe"},
		{"FirstSuffix", fakeSlugs{"existing-recipe": true}, "Existing Recipe", "existing-recipe-2"},
		{"NextSuffix", fakeSlugs{"existing-recipe": true, "existing-recipe-2": true}, "Existing Recipe", "existing-recipe-3"},
		{"Diacritics", fakeSlugs{}, "Crème brûlée!", "creme-brulee"},
		{"GapIgnored", fakeSlugs{"soup": true, "soup-3": true}, "Soup", "soup-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, err := NewSlugGenerator(tt.taken).Generate(ctx, tt.title)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, slug)
		})
	}

	t.Run("CheckerError_ShouldPropagate", func(t *testing.T) {
		_, err := NewSlugGenerator(failingSlugs{}).Generate(ctx, "Soup")
		assert.ErrorContains(t, err, "connection reset")
	})
}
