package recipe

import (
	"context"
	"fmt"

	"github.com/alchemorsel/pantry/pkg/textkey"
)

// SlugChecker reports whether a slug is already in use.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// maxSlugCandidates bounds the suffix search so a pathological table cannot
// keep a request busy forever.
const maxSlugCandidates = 1000

// SlugGenerator derives unique slugs from titles. It tries base, base-2,
// base-3 and so on, returning the first free candidate. The check is not
// atomic; the unique index on recipes.slug is the final arbiter.
type SlugGenerator struct {
	checker SlugChecker
}

// NewSlugGenerator creates a slug generator backed by checker.
func NewSlugGenerator(checker SlugChecker) *SlugGenerator {
	return &SlugGenerator{checker: checker}
}

// Generate returns the first free slug for title.
func (g *SlugGenerator) Generate(ctx context.Context, title string) (string, error) {
	base := textkey.Slug(title)

	for n := 1; n <= maxSlugCandidates; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}

		taken, err := g.checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugCandidates)
}
