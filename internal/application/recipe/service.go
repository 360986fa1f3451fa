// Package recipe provides the application layer for recipe management
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/nutrition"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// maxCreateAttempts bounds how often a create searches again for a slug after
// losing a race on the unique index.
const maxCreateAttempts = 5

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipes  outbound.RecipeRepository
	products outbound.ProductRepository
	customs  outbound.CustomIngredientRepository
	slugs    *SlugGenerator
	events   shared.EventDispatcher
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipes outbound.RecipeRepository,
	products outbound.ProductRepository,
	customs outbound.CustomIngredientRepository,
	events shared.EventDispatcher,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:  recipes,
		products: products,
		customs:  customs,
		slugs:    NewSlugGenerator(recipes),
		events:   events,
		logger:   logger.Named("recipe-service"),
		tracer:   otel.Tracer("github.com/alchemorsel/pantry/internal/application/recipe"),
	}
}

var _ inbound.RecipeService = (*RecipeService)(nil)

// CreateRecipe validates the command, allocates a slug and stores the recipe.
// A slug lost to a concurrent writer is searched for again a bounded number of times.
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Creating recipe", zap.String("title", cmd.Title))

	content, ingredients, err := s.content(ctx, cmd)
	if err != nil {
		return nil, err
	}

	slug, err := s.slugs.Generate(ctx, content.Title)
	if err != nil {
		return nil, apperrors.NewDatabaseError("generate slug", err)
	}

	entity, err := recipe.NewRecipe(content, slug)
	if err != nil {
		return nil, domainError(err)
	}

	for attempt := 1; ; attempt++ {
		err = s.recipes.Create(ctx, entity)
		if err == nil {
			break
		}
		if !errors.Is(err, recipe.ErrSlugTaken) {
			return nil, apperrors.NewDatabaseError("create recipe", err)
		}
		if attempt == maxCreateAttempts {
			return nil, apperrors.NewSlugConflictError(entity.Slug())
		}

		s.logger.Warn("Slug taken concurrently, retrying",
			zap.String("slug", entity.Slug()),
			zap.Int("attempt", attempt),
		)
		slug, err = s.slugs.Generate(ctx, content.Title)
		if err != nil {
			return nil, apperrors.NewDatabaseError("generate slug", err)
		}
		entity.Reslug(slug)
	}

	s.publish(entity.Events())

	s.logger.Info("Recipe created",
		zap.String("recipe_id", entity.ID().String()),
		zap.String("slug", entity.Slug()),
	)
	return s.detailDTO(entity, ingredients), nil
}

// UpdateRecipe replaces the content of an existing recipe. The slug is kept.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id uuid.UUID, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Updating recipe", zap.String("recipe_id", id.String()))

	entity, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return nil, s.findError(err, id.String())
	}

	content, ingredients, err := s.content(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := entity.Update(content); err != nil {
		return nil, domainError(err)
	}

	if err := s.recipes.Update(ctx, entity); err != nil {
		return nil, s.findError(err, id.String())
	}

	return s.detailDTO(entity, ingredients), nil
}

// DeleteRecipe removes a recipe and its ingredient lines.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	entity, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return s.findError(err, id.String())
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		return s.findError(err, id.String())
	}

	entity.MarkDeleted()
	s.publish(entity.Events())

	s.logger.Info("Recipe deleted", zap.String("recipe_id", id.String()))
	return nil
}

// GetRecipe loads a recipe by slug with its macro panel.
func (s *RecipeService) GetRecipe(ctx context.Context, slug string) (*inbound.RecipeDTO, error) {
	entity, err := s.recipes.FindBySlug(ctx, slug)
	if err != nil {
		return nil, s.findError(err, slug)
	}

	ingredients, err := s.lookup(ctx, entity.Ingredients())
	if err != nil {
		return nil, err
	}
	return s.detailDTO(entity, ingredients), nil
}

// SearchRecipes runs the aggregation query and re-hydrates the page in the
// order the query produced.
func (s *RecipeService) SearchRecipes(ctx context.Context, filter recipe.SearchFilter) (*inbound.SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "recipe.search")
	defer span.End()

	f, err := filter.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	span.SetAttributes(
		attribute.String("sort_by", string(f.SortBy)),
		attribute.Int("limit", f.Limit),
		attribute.Int("offset", f.Offset),
		attribute.Int("ingredients", len(f.Ingredients)),
	)

	hits, err := s.recipes.SearchRecipeIDs(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search query failed")
		return nil, apperrors.NewDatabaseError("search recipes", err)
	}

	hasMore := len(hits) > f.Limit
	if hasMore {
		hits = hits[:f.Limit]
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.RecipeID
	}
	found, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recipes", err)
	}

	byID := make(map[uuid.UUID]*recipe.Recipe, len(found))
	var lines []recipe.IngredientLine
	for _, r := range found {
		byID[r.ID()] = r
		lines = append(lines, r.Ingredients()...)
	}
	ingredients, err := s.lookup(ctx, lines)
	if err != nil {
		return nil, err
	}

	result := &inbound.SearchResult{Recipes: make([]inbound.RecipeDTO, 0, len(hits)), HasMore: hasMore}
	for _, h := range hits {
		r, ok := byID[h.RecipeID]
		if !ok {
			// Deleted between the two queries.
			continue
		}
		dto := s.baseDTO(r, ingredients)
		dto.Nutrition = inbound.NutritionDTO{Totals: h.Totals, Split: h.Split}
		result.Recipes = append(result.Recipes, *dto)
	}

	span.SetAttributes(attribute.Int("results", len(result.Recipes)), attribute.Bool("has_more", hasMore))
	return result, nil
}

// ingredientInfo is what a recipe view needs to know about one ingredient.
type ingredientInfo struct {
	name   string
	macros catalog.Macros
}

// content parses the command's references and checks that every referenced
// ingredient exists.
func (s *RecipeService) content(ctx context.Context, cmd inbound.RecipeCommand) (recipe.Content, map[catalog.Ref]ingredientInfo, error) {
	lines := make([]recipe.IngredientLine, 0, len(cmd.Ingredients))
	for i, l := range cmd.Ingredients {
		ref, err := catalog.ParseRef(l.Ref)
		if err == nil {
			ref, err = ref.Canonical()
		}
		if err != nil {
			return recipe.Content{}, nil, apperrors.NewValidationError(fmt.Sprintf("ingredients[%d]: %v", i, err))
		}
		lines = append(lines, recipe.IngredientLine{Ref: ref, Quantity: l.Quantity})
	}

	ingredients, err := s.lookup(ctx, lines)
	if err != nil {
		return recipe.Content{}, nil, err
	}
	for _, l := range lines {
		if _, ok := ingredients[l.Ref]; !ok {
			return recipe.Content{}, nil, apperrors.NewIngredientNotFoundError(l.Ref.String())
		}
	}

	return recipe.Content{
		Title:       cmd.Title,
		Steps:       cmd.Steps,
		ImageURL:    cmd.ImageURL,
		URLs:        cmd.URLs,
		Ingredients: lines,
	}, ingredients, nil
}

// lookup batch-loads the products and custom ingredients lines refer to.
func (s *RecipeService) lookup(ctx context.Context, lines []recipe.IngredientLine) (map[catalog.Ref]ingredientInfo, error) {
	var productIDs []uint
	var customIDs []uuid.UUID
	for _, l := range lines {
		if id, ok := l.Ref.ProductID(); ok {
			productIDs = append(productIDs, id)
		} else if id, ok := l.Ref.CustomID(); ok {
			customIDs = append(customIDs, id)
		}
	}

	out := make(map[catalog.Ref]ingredientInfo, len(lines))
	if len(productIDs) > 0 {
		products, err := s.products.FindByIDs(ctx, productIDs)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load products", err)
		}
		for _, p := range products {
			out[p.Ref()] = ingredientInfo{name: p.Name(), macros: p.Macros()}
		}
	}
	if len(customIDs) > 0 {
		customs, err := s.customs.FindByIDs(ctx, customIDs)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load custom ingredients", err)
		}
		for _, c := range customs {
			out[c.Ref()] = ingredientInfo{name: c.Name(), macros: c.Macros()}
		}
	}
	return out, nil
}

func (s *RecipeService) baseDTO(r *recipe.Recipe, ingredients map[catalog.Ref]ingredientInfo) *inbound.RecipeDTO {
	dto := &inbound.RecipeDTO{
		ID:          r.ID(),
		Slug:        r.Slug(),
		Title:       r.Title(),
		Steps:       nonNil(r.Steps()),
		ImageURL:    r.ImageURL(),
		URLs:        nonNil(r.URLs()),
		Ingredients: make([]inbound.IngredientLineDTO, 0, len(r.Ingredients())),
		CreatedAt:   r.CreatedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
	for _, l := range r.Ingredients() {
		dto.Ingredients = append(dto.Ingredients, inbound.IngredientLineDTO{
			Ref:      l.Ref.String(),
			Name:     ingredients[l.Ref].name,
			Quantity: l.Quantity,
		})
	}
	return dto
}

// detailDTO computes the macro panel with the calculator.
func (s *RecipeService) detailDTO(r *recipe.Recipe, ingredients map[catalog.Ref]ingredientInfo) *inbound.RecipeDTO {
	dto := s.baseDTO(r, ingredients)

	items := make([]nutrition.Item, 0, len(r.Ingredients()))
	for _, l := range r.Ingredients() {
		items = append(items, ingredients[l.Ref].macros.Item(l.Quantity))
	}
	totals := nutrition.Calculate(items)
	dto.Nutrition = inbound.NutritionDTO{Totals: totals, Split: nutrition.Percentages(totals)}
	return dto
}

func (s *RecipeService) publish(pending []shared.DomainEvent) {
	for _, event := range pending {
		if err := s.events.Dispatch(event); err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
		}
	}
}

func (s *RecipeService) findError(err error, ref string) error {
	if errors.Is(err, recipe.ErrRecipeNotFound) {
		return apperrors.NewRecipeNotFoundError(ref)
	}
	if errors.Is(err, recipe.ErrSlugTaken) {
		return apperrors.NewSlugConflictError(ref)
	}
	return apperrors.NewDatabaseError("recipe lookup", err)
}

// domainError maps aggregate validation failures onto validation errors.
func domainError(err error) error {
	switch {
	case errors.Is(err, recipe.ErrEmptyTitle),
		errors.Is(err, recipe.ErrTitleTooLong),
		errors.Is(err, recipe.ErrTooManySteps),
		errors.Is(err, recipe.ErrEmptySlug),
		errors.Is(err, recipe.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidRef):
		return apperrors.NewValidationError(err.Error())
	default:
		return apperrors.Wrap(err, "invalid recipe")
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
