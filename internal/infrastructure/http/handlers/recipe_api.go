package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// RecipeHandlers handles recipe API requests
type RecipeHandlers struct {
	recipes inbound.RecipeService
	logger  *zap.Logger
}

// NewRecipeHandlers creates a new recipe handlers instance
func NewRecipeHandlers(recipes inbound.RecipeService, logger *zap.Logger) *RecipeHandlers {
	return &RecipeHandlers{recipes: recipes, logger: logger.Named("recipe-api")}
}

// SearchRequest is the body of POST /recipes/search. Ingredients are
// wire references such as "product:12" or "custom:<uuid>".
type SearchRequest struct {
	Ingredients []string                `json:"ingredients" binding:"omitempty,max=50,dive,required"`
	Grams       map[string]recipe.Range `json:"grams"`
	Percent     map[string]recipe.Range `json:"percent"`
	SortBy      string                  `json:"sortBy"`
	Limit       int                     `json:"limit" binding:"gte=0,lte=200"`
	Offset      int                     `json:"offset" binding:"gte=0"`
}

func (r SearchRequest) toFilter() (recipe.SearchFilter, error) {
	f := recipe.SearchFilter{
		SortBy: recipe.SortKey(r.SortBy),
		Limit:  r.Limit,
		Offset: r.Offset,
	}

	seen := make(map[catalog.Ref]bool, len(r.Ingredients))
	for _, raw := range r.Ingredients {
		ref, err := catalog.ParseRef(raw)
		if err != nil {
			return f, apperrors.NewValidationError(fmt.Sprintf("invalid ingredient reference %q", raw))
		}
		// An id that can never be stored is still a valid reference; it
		// simply matches no recipe.
		if canonical, err := ref.Canonical(); err == nil {
			ref = canonical
		}
		// Requiring the same ingredient twice is the same constraint.
		if !seen[ref] {
			seen[ref] = true
			f.Ingredients = append(f.Ingredients, ref)
		}
	}

	if len(r.Grams) > 0 {
		f.Grams = make(map[recipe.GramField]recipe.Range, len(r.Grams))
		for k, v := range r.Grams {
			f.Grams[recipe.GramField(k)] = v
		}
	}
	if len(r.Percent) > 0 {
		f.Percent = make(map[recipe.PercentField]recipe.Range, len(r.Percent))
		for k, v := range r.Percent {
			f.Percent[recipe.PercentField(k)] = v
		}
	}
	return f, nil
}

// RecipeRequest is the body of recipe create and update.
type RecipeRequest struct {
	Title       string                  `json:"title" binding:"required,max=200"`
	Steps       []string                `json:"steps" binding:"omitempty,dive,required"`
	ImageURL    string                  `json:"imageUrl" binding:"omitempty,url"`
	URLs        []string                `json:"urls" binding:"omitempty,dive,url"`
	Ingredients []IngredientLineRequest `json:"ingredients" binding:"omitempty,dive"`
}

type IngredientLineRequest struct {
	Ref      string  `json:"ref" binding:"required"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
}

func (r RecipeRequest) toCommand() inbound.RecipeCommand {
	cmd := inbound.RecipeCommand{
		Title:    r.Title,
		Steps:    r.Steps,
		ImageURL: r.ImageURL,
		URLs:     r.URLs,
	}
	for _, l := range r.Ingredients {
		cmd.Ingredients = append(cmd.Ingredients, inbound.IngredientLineCommand{Ref: l.Ref, Quantity: l.Quantity})
	}
	return cmd
}

// SearchRecipes handles POST /api/v1/recipes/search
func (h *RecipeHandlers) SearchRecipes(c *gin.Context) {
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}

	filter, err := req.toFilter()
	if err != nil {
		fail(c, err)
		return
	}

	result, err := h.recipes.SearchRecipes(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRecipe handles GET /api/v1/recipes/:slug
func (h *RecipeHandlers) GetRecipe(c *gin.Context) {
	dto, err := h.recipes.GetRecipe(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// CreateRecipe handles POST /api/v1/recipes
func (h *RecipeHandlers) CreateRecipe(c *gin.Context) {
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	dto, err := h.recipes.CreateRecipe(c.Request.Context(), req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Location", "/api/v1/recipes/"+dto.Slug)
	c.JSON(http.StatusCreated, dto)
}

// UpdateRecipe handles PUT /api/v1/recipes/:id
func (h *RecipeHandlers) UpdateRecipe(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	dto, err := h.recipes.UpdateRecipe(c.Request.Context(), id, req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// DeleteRecipe handles DELETE /api/v1/recipes/:id
func (h *RecipeHandlers) DeleteRecipe(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
