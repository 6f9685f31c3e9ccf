package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/infrastructure/http/respond"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// RecipeAPIHandlers handles recipe simplification and cookbook requests
type RecipeAPIHandlers struct {
	recipeService inbound.RecipeService
	validator     *security.Validator
	logger        *zap.Logger
}

// NewRecipeAPIHandlers creates a new recipe API handlers instance
func NewRecipeAPIHandlers(recipeService inbound.RecipeService, validator *security.Validator, logger *zap.Logger) *RecipeAPIHandlers {
	return &RecipeAPIHandlers{
		recipeService: recipeService,
		validator:     validator,
		logger:        logger.Named("recipe-api"),
	}
}

// ParseRecipeRequest is the body of POST /api/parse-recipe. Instructions may
// be a list or a single "; " joined string.
type ParseRecipeRequest struct {
	URL          string          `json:"url"`
	Instructions json.RawMessage `json:"instructions,omitempty"`
	Locale       string          `json:"locale,omitempty"`
}

// SaveRecipeRequest is the body of POST /api/recipes.
type SaveRecipeRequest struct {
	Recipe    *recipe.ParsedRecipe `json:"recipe" validate:"required"`
	SourceURL string               `json:"source_url,omitempty" validate:"omitempty,weburl"`
}

// RecipeResponse wraps a single recipe.
type RecipeResponse struct {
	Recipe interface{} `json:"recipe"`
}

// ParseRecipe handles POST /api/parse-recipe
func (h *RecipeAPIHandlers) ParseRecipe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req ParseRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	customizations, err := decodeInstructions(req.Instructions)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	parsed, err := h.recipeService.ParseRecipe(r.Context(), inbound.ParseRecipeCommand{
		Caller:         caller,
		URL:            req.URL,
		Locale:         recipe.ParseLocale(req.Locale),
		Customizations: customizations,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, RecipeResponse{Recipe: parsed})
}

// SaveRecipe handles POST /api/recipes
func (h *RecipeAPIHandlers) SaveRecipe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req SaveRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	saved, err := h.recipeService.SaveRecipe(r.Context(), inbound.SaveRecipeCommand{
		Caller:    caller,
		Recipe:    *req.Recipe,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusCreated, RecipeResponse{Recipe: saved})
}

// ListRecipes handles GET /api/recipes
func (h *RecipeAPIHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.recipeService.ListRecipes(r.Context(), caller.UserID, inbound.PaginationParams{Page: page, Limit: limit})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, list)
}

// GetRecipe handles GET /api/recipes/{id}
func (h *RecipeAPIHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	saved, err := h.recipeService.GetRecipe(r.Context(), caller.UserID, id)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, RecipeResponse{Recipe: saved})
}

// DeleteRecipe handles DELETE /api/recipes/{id}
func (h *RecipeAPIHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	if err := h.recipeService.DeleteRecipe(r.Context(), caller.UserID, id); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, MessageResponse{Success: true})
}

func decodeInstructions(raw json.RawMessage) (recipe.Customizations, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return recipe.Customizations{}, nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return recipe.SplitCustomizations(joined), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return recipe.NewCustomizations(list...), nil
	}
	return nil, errors.NewBadRequestError("instructions must be a string or a list of strings")
}
