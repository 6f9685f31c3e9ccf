// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
)

// RecipeFactory creates parsed and saved recipes with fake content.
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{faker: gofakeit.New(seed)}
}

// ParsedRecipe returns a complete recipe with the given number of
// ingredients and steps.
func (f *RecipeFactory) ParsedRecipe(ingredients, steps int) recipe.ParsedRecipe {
	r := recipe.ParsedRecipe{
		Title:       f.faker.Dessert(),
		Ingredients: make([]recipe.Ingredient, 0, ingredients),
		Steps:       make([]recipe.Step, 0, steps),
	}
	for i := 0; i < ingredients; i++ {
		r.Ingredients = append(r.Ingredients, recipe.Ingredient{
			Name:   f.faker.Fruit(),
			Amount: fmt.Sprintf("%d", f.faker.Number(1, 500)),
			Unit:   f.faker.RandomString([]string{"g", "ml", "cup", "tbsp", "tsp"}),
		})
	}
	for i := 0; i < steps; i++ {
		r.Steps = append(r.Steps, recipe.Step{
			Step:        i + 1,
			Instruction: f.faker.Sentence(8),
		})
	}
	servings := f.faker.Number(1, 8)
	prep := fmt.Sprintf("%d minutes", f.faker.Number(5, 30))
	image := f.faker.URL() + "/dish.jpg"
	r.Servings = &servings
	r.PrepTime = &prep
	r.Image = &image
	return r
}

// SavedRecipe returns a cookbook recipe owned by userID.
func (f *RecipeFactory) SavedRecipe(userID uuid.UUID) *recipe.SavedRecipe {
	saved, err := recipe.NewSavedRecipe(userID, f.ParsedRecipe(3, 3), f.faker.URL())
	if err != nil {
		panic(err)
	}
	return saved
}

// UserFactory creates users with unique emails.
type UserFactory struct {
	faker *gofakeit.Faker
}

func NewUserFactory(seed int64) *UserFactory {
	return &UserFactory{faker: gofakeit.New(seed)}
}

// User returns a valid non-admin user.
func (f *UserFactory) User() *user.User {
	u, err := user.New(uuid.New(), fmt.Sprintf("%s.%s@example.com", f.faker.Username(), uuid.NewString()[:8]))
	if err != nil {
		panic(err)
	}
	return u
}

// SubscriptionBuilder provides a fluent interface for building subscriptions
type SubscriptionBuilder struct {
	sub subscription.Subscription
}

// NewSubscriptionBuilder starts from an active premium subscription whose
// period ends in 30 days.
func NewSubscriptionBuilder(userID uuid.UUID) *SubscriptionBuilder {
	now := time.Now().UTC()
	start := now.Add(-24 * time.Hour)
	end := now.Add(30 * 24 * time.Hour)
	customer := "cus_" + uuid.NewString()[:14]
	subID := "sub_" + uuid.NewString()[:14]
	b := &SubscriptionBuilder{sub: subscription.Subscription{
		UserID:               userID,
		StripeCustomerID:     &customer,
		StripeSubscriptionID: &subID,
		Status:               subscription.StatusActive,
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
	}}
	b.sub.SetPlan(subscription.PlanPremium)
	return b
}

func (b *SubscriptionBuilder) WithPlan(plan subscription.Plan) *SubscriptionBuilder {
	b.sub.SetPlan(plan)
	return b
}

func (b *SubscriptionBuilder) WithStatus(status subscription.Status) *SubscriptionBuilder {
	b.sub.Status = status
	return b
}

// WithPeriodEnd sets the period end; nil clears it.
func (b *SubscriptionBuilder) WithPeriodEnd(end *time.Time) *SubscriptionBuilder {
	b.sub.CurrentPeriodEnd = end
	return b
}

func (b *SubscriptionBuilder) WithCancelAtPeriodEnd(cancel bool) *SubscriptionBuilder {
	b.sub.CancelAtPeriodEnd = cancel
	return b
}

func (b *SubscriptionBuilder) WithStripeSubscriptionID(id string) *SubscriptionBuilder {
	b.sub.StripeSubscriptionID = &id
	return b
}

// WithoutStripe clears processor identifiers, as for admin grants.
func (b *SubscriptionBuilder) WithoutStripe() *SubscriptionBuilder {
	b.sub.StripeCustomerID = nil
	b.sub.StripeSubscriptionID = nil
	return b
}

func (b *SubscriptionBuilder) Build() *subscription.Subscription {
	sub := b.sub
	return &sub
}

// Usage returns counters for today.
func Usage(userID uuid.UUID, recipes, customizations int) *subscription.Usage {
	return &subscription.Usage{
		UserID:             userID,
		Date:               subscription.Day(time.Now()),
		RecipesParsed:      recipes,
		CustomizationsUsed: customizations,
	}
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
