// Package recipe contains the recipe aggregate and the search filter model.
package recipe

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/pkg/textkey"
)

const (
	maxTitleLength = 200
	maxSteps       = 100
)

// IngredientLine is a weighed reference to a product or custom ingredient.
type IngredientLine struct {
	Ref      catalog.Ref
	Quantity float64
}

func (l IngredientLine) validate() error {
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.Ref.Kind != catalog.RefProduct && l.Ref.Kind != catalog.RefCustom {
		return catalog.ErrInvalidRef
	}
	return nil
}

// Content is the editable body of a recipe.
type Content struct {
	Title       string
	Steps       []string
	ImageURL    string
	URLs        []string
	Ingredients []IngredientLine
}

// Recipe is the aggregate root for a published recipe.
type Recipe struct {
	shared.AggregateRoot

	id              uuid.UUID
	title           string
	normalizedTitle string
	slug            string
	steps           []string
	imageURL        string
	urls            []string
	ingredients     []IngredientLine
	createdAt       time.Time
	updatedAt       time.Time
}

// NewRecipe validates content and assigns the given slug.
func NewRecipe(c Content, slug string) (*Recipe, error) {
	now := time.Now()
	r := &Recipe{id: uuid.New(), createdAt: now, updatedAt: now}
	if err := r.apply(c); err != nil {
		return nil, err
	}
	if slug == "" {
		return nil, ErrEmptySlug
	}
	r.slug = slug

	r.AddEvent(RecipeCreatedEvent{RecipeID: r.id, Title: r.title, Slug: slug, CreatedAt: now})
	return r, nil
}

// Restore rebuilds a recipe from storage.
func Restore(id uuid.UUID, c Content, slug string, createdAt, updatedAt time.Time) *Recipe {
	return &Recipe{
		id:              id,
		title:           c.Title,
		normalizedTitle: textkey.Normalize(c.Title),
		slug:            slug,
		steps:           c.Steps,
		imageURL:        c.ImageURL,
		urls:            c.URLs,
		ingredients:     c.Ingredients,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// Update replaces the content. The slug is kept so links stay stable.
func (r *Recipe) Update(c Content) error {
	if err := r.apply(c); err != nil {
		return err
	}
	r.updatedAt = time.Now()
	return nil
}

// Reslug assigns a new slug, used when a create races another writer.
func (r *Recipe) Reslug(slug string) {
	r.slug = slug
}

// MarkDeleted records the deletion event.
func (r *Recipe) MarkDeleted() {
	r.AddEvent(RecipeDeletedEvent{RecipeID: r.id, Slug: r.slug, DeletedAt: time.Now()})
}

func (r *Recipe) apply(c Content) error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if len(c.Steps) > maxSteps {
		return ErrTooManySteps
	}

	steps := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}

	lines := make([]IngredientLine, 0, len(c.Ingredients))
	for _, l := range c.Ingredients {
		if err := l.validate(); err != nil {
			return err
		}
		lines = append(lines, l)
	}

	r.title = title
	r.normalizedTitle = textkey.Normalize(title)
	r.steps = steps
	r.imageURL = strings.TrimSpace(c.ImageURL)
	r.urls = append([]string(nil), c.URLs...)
	r.ingredients = lines
	return nil
}

func (r *Recipe) ID() uuid.UUID                 { return r.id }
func (r *Recipe) Title() string                 { return r.title }
func (r *Recipe) NormalizedTitle() string       { return r.normalizedTitle }
func (r *Recipe) Slug() string                  { return r.slug }
func (r *Recipe) Steps() []string               { return r.steps }
func (r *Recipe) ImageURL() string              { return r.imageURL }
func (r *Recipe) URLs() []string                { return r.urls }
func (r *Recipe) Ingredients() []IngredientLine { return r.ingredients }
func (r *Recipe) CreatedAt() time.Time          { return r.createdAt }
func (r *Recipe) UpdatedAt() time.Time          { return r.updatedAt }
