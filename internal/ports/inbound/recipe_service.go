// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
)

// Identity is the authenticated caller as established from the bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// RecipeService covers recipe simplification and the cookbook.
type RecipeService interface {
	ParseRecipe(ctx context.Context, cmd ParseRecipeCommand) (*recipe.ParsedRecipe, error)
	SaveRecipe(ctx context.Context, cmd SaveRecipeCommand) (*recipe.SavedRecipe, error)
	ListRecipes(ctx context.Context, userID uuid.UUID, params PaginationParams) (*RecipeList, error)
	GetRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*recipe.SavedRecipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID uuid.UUID) error
}

// ParseRecipeCommand requests simplification of the recipe at URL.
type ParseRecipeCommand struct {
	Caller         Identity
	URL            string
	Locale         recipe.Locale
	Customizations recipe.Customizations
}

// SaveRecipeCommand stores a parsed recipe in the caller's cookbook.
type SaveRecipeCommand struct {
	Caller    Identity
	Recipe    recipe.ParsedRecipe
	SourceURL string
}

// PaginationParams selects a page of results.
type PaginationParams struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to 1..100, defaulting limit to 20.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// RecipeList is a page of cookbook recipes.
type RecipeList struct {
	Recipes    []*recipe.SavedRecipe `json:"recipes"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"total_pages"`
}
