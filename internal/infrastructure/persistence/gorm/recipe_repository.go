package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) outbound.RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create creates a new recipe
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.SavedRecipe) error {
	model := recipeToModel(rec)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

// FindByID finds a recipe by ID
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.SavedRecipe, error) {
	var model RecipeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, err
	}
	return recipeFromModel(&model), nil
}

// FindByUserID returns a page of the user's recipes, newest first, and the total count.
func (r *RecipeRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.SavedRecipe, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&RecipeModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []RecipeModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	recipes := make([]*recipe.SavedRecipe, len(models))
	for i := range models {
		recipes[i] = recipeFromModel(&models[i])
	}
	return recipes, total, nil
}

// Delete deletes a recipe owned by userID
func (r *RecipeRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&RecipeModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return outbound.ErrNotFound
	}
	return nil
}
