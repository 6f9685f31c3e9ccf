package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/test/testutils"
)

func TestHasPremiumAccess(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	userID := uuid.New()

	tests := []struct {
		name string
		sub  *subscription.Subscription
		want bool
	}{
		{"no subscription", nil, false},
		{"free", subscription.Free(userID), false},
		{"active premium before period end", testutils.NewSubscriptionBuilder(userID).WithPeriodEnd(&future).Build(), true},
		{"active premium after period end", testutils.NewSubscriptionBuilder(userID).WithPeriodEnd(&past).Build(), false},
		{"active premium at period end", testutils.NewSubscriptionBuilder(userID).WithPeriodEnd(&now).Build(), false},
		{"active premium without period end", testutils.NewSubscriptionBuilder(userID).WithPeriodEnd(nil).Build(), true},
		{"pending cancellation keeps access", testutils.NewSubscriptionBuilder(userID).WithPeriodEnd(&future).WithCancelAtPeriodEnd(true).Build(), true},
		{"canceled premium", testutils.NewSubscriptionBuilder(userID).WithStatus(subscription.StatusCanceled).WithPeriodEnd(&future).Build(), false},
		{"past due premium", testutils.NewSubscriptionBuilder(userID).WithStatus(subscription.StatusPastDue).Build(), false},
		{"lifetime ignores status", testutils.NewSubscriptionBuilder(userID).WithPlan(subscription.PlanLifetime).WithStatus(subscription.StatusCanceled).WithPeriodEnd(&past).Build(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subscription.HasPremiumAccess(tt.sub, now))
		})
	}
}

func TestPolicy_Quotas(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()
	policy := subscription.NewPolicy(subscription.DefaultLimits)
	free := subscription.Free(userID)
	premium := testutils.NewSubscriptionBuilder(userID).Build()

	t.Run("free under recipe limit", func(t *testing.T) {
		assert.True(t, policy.CanParseRecipe(free, testutils.Usage(userID, 2, 0), now))
	})

	t.Run("free at recipe limit", func(t *testing.T) {
		assert.False(t, policy.CanParseRecipe(free, testutils.Usage(userID, 3, 0), now))
	})

	t.Run("no usage row counts as zero", func(t *testing.T) {
		assert.True(t, policy.CanParseRecipe(free, nil, now))
		assert.True(t, policy.CanUseCustomizations(free, nil, 3, now))
	})

	t.Run("customizations must fit the remaining allowance", func(t *testing.T) {
		usage := testutils.Usage(userID, 0, 1)

		assert.True(t, policy.CanUseCustomizations(free, usage, 2, now))
		assert.False(t, policy.CanUseCustomizations(free, usage, 3, now))
	})

	t.Run("premium is unlimited", func(t *testing.T) {
		usage := testutils.Usage(userID, 500, 500)

		assert.True(t, policy.CanParseRecipe(premium, usage, now))
		assert.True(t, policy.CanUseCustomizations(premium, usage, 50, now))
		assert.Equal(t, subscription.Unlimited, policy.MaxRecipesPerDay(premium, now))
		assert.Equal(t, subscription.Unlimited, policy.MaxCustomizationsPerDay(premium, now))
	})
}

func TestPolicy_Summarize(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()
	policy := subscription.NewPolicy(subscription.Limits{RecipesPerDay: 5, CustomizationsPerDay: 2})

	t.Run("free user with partial usage", func(t *testing.T) {
		got := policy.Summarize(subscription.Free(userID), testutils.Usage(userID, 3, 4), now)

		assert.Equal(t, subscription.Summary{
			HasPremiumAccess:        false,
			CanParseRecipe:          true,
			MaxRecipesPerDay:        5,
			MaxCustomizationsPerDay: 2,
			RecipesRemaining:        2,
			CustomizationsRemaining: 0,
		}, got)
	})

	t.Run("premium user", func(t *testing.T) {
		got := policy.Summarize(testutils.NewSubscriptionBuilder(userID).Build(), testutils.Usage(userID, 10, 0), now)

		assert.True(t, got.HasPremiumAccess)
		assert.True(t, got.CanParseRecipe)
		assert.Equal(t, subscription.Unlimited-10, got.RecipesRemaining)
	})
}

func TestSubscription_State(t *testing.T) {
	userID := uuid.New()

	t.Run("set plan keeps premium flag consistent", func(t *testing.T) {
		sub := subscription.Free(userID)

		sub.SetPlan(subscription.PlanLifetime)
		assert.True(t, sub.IsPremium)

		sub.SetPlan(subscription.PlanFree)
		assert.False(t, sub.IsPremium)
	})

	t.Run("reactivatable states", func(t *testing.T) {
		pending := testutils.NewSubscriptionBuilder(userID).WithCancelAtPeriodEnd(true).Build()
		canceled := testutils.NewSubscriptionBuilder(userID).WithStatus(subscription.StatusCanceled).Build()
		active := testutils.NewSubscriptionBuilder(userID).Build()

		assert.True(t, pending.PendingCancellation())
		assert.True(t, pending.Reactivatable())
		assert.True(t, canceled.Reactivatable())
		assert.False(t, active.Reactivatable())
	})

	t.Run("day truncates to UTC midnight", func(t *testing.T) {
		loc := time.FixedZone("UTC+10", 10*3600)
		local := time.Date(2025, 1, 2, 3, 0, 0, 0, loc)

		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), subscription.Day(local))
	})
}
