package gorm

import (
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
)

func userFromModel(m *UserModel) *user.User {
	return &user.User{
		ID:        m.ID,
		Email:     m.Email,
		IsAdmin:   m.IsAdmin,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func recipeToModel(r *recipe.SavedRecipe) *RecipeModel {
	return &RecipeModel{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Image:       r.Image,
		Ingredients: JSONList[recipe.Ingredient](r.Ingredients),
		Steps:       JSONList[recipe.Step](r.Steps),
		Servings:    r.Servings,
		PrepTime:    r.PrepTime,
		CookTime:    r.CookTime,
		TotalTime:   r.TotalTime,
		SourceURL:   r.SourceURL,
		CreatedAt:   r.CreatedAt,
	}
}

func recipeFromModel(m *RecipeModel) *recipe.SavedRecipe {
	ingredients := []recipe.Ingredient(m.Ingredients)
	if ingredients == nil {
		ingredients = []recipe.Ingredient{}
	}
	steps := []recipe.Step(m.Steps)
	if steps == nil {
		steps = []recipe.Step{}
	}
	return &recipe.SavedRecipe{
		ParsedRecipe: recipe.ParsedRecipe{
			Title:       m.Title,
			Image:       m.Image,
			Ingredients: ingredients,
			Steps:       steps,
			Servings:    m.Servings,
			PrepTime:    m.PrepTime,
			CookTime:    m.CookTime,
			TotalTime:   m.TotalTime,
		},
		ID:        m.ID,
		UserID:    m.UserID,
		SourceURL: m.SourceURL,
		CreatedAt: m.CreatedAt,
	}
}

func subscriptionToModel(s *subscription.Subscription) *SubscriptionModel {
	return &SubscriptionModel{
		ID:                   s.ID,
		UserID:               s.UserID,
		StripeCustomerID:     s.StripeCustomerID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		Status:               string(s.Status),
		Plan:                 string(s.Plan),
		IsPremium:            s.Plan.Premium(),
		CurrentPeriodStart:   s.CurrentPeriodStart,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		GrantedBy:            s.GrantedBy,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func subscriptionFromModel(m *SubscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                   m.ID,
		UserID:               m.UserID,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		Status:               subscription.Status(m.Status),
		Plan:                 subscription.Plan(m.Plan),
		IsPremium:            m.IsPremium,
		CurrentPeriodStart:   m.CurrentPeriodStart,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		GrantedBy:            m.GrantedBy,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func usageFromModel(m *UsageModel) *subscription.Usage {
	return &subscription.Usage{
		UserID:             m.UserID,
		Date:               subscription.Day(m.Date),
		RecipesParsed:      m.RecipesParsed,
		CustomizationsUsed: m.CustomizationsUsed,
	}
}
