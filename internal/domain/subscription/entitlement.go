package subscription

import "time"

// Unlimited is reported as the daily maximum for premium users.
const Unlimited = 999999

// Limits are the free-tier daily allowances.
type Limits struct {
	RecipesPerDay        int
	CustomizationsPerDay int
}

// DefaultLimits are the free-tier allowances when nothing is configured.
var DefaultLimits = Limits{RecipesPerDay: 3, CustomizationsPerDay: 3}

// Policy evaluates entitlements against a set of free-tier limits.
type Policy struct {
	limits Limits
}

func NewPolicy(limits Limits) *Policy {
	return &Policy{limits: limits}
}

// HasPremiumAccess decides whether sub grants premium features at now.
//
// Lifetime plans always do. Otherwise the subscription must be premium and
// active, and if a period end is recorded now must be before it. A pending
// cancellation keeps access until the period ends.
func HasPremiumAccess(sub *Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	if sub.Plan == PlanLifetime {
		return true
	}
	if sub.IsPremium && sub.Status == StatusActive {
		if sub.CurrentPeriodEnd == nil {
			return true
		}
		return now.Before(*sub.CurrentPeriodEnd)
	}
	return false
}

// CanParseRecipe reports whether one more recipe may be parsed today.
func (p *Policy) CanParseRecipe(sub *Subscription, usage *Usage, now time.Time) bool {
	if HasPremiumAccess(sub, now) {
		return true
	}
	return recipesParsed(usage) < p.limits.RecipesPerDay
}

// CanUseCustomizations reports whether requested more customizations fit in
// today's allowance.
func (p *Policy) CanUseCustomizations(sub *Subscription, usage *Usage, requested int, now time.Time) bool {
	if HasPremiumAccess(sub, now) {
		return true
	}
	return customizationsUsed(usage)+requested <= p.limits.CustomizationsPerDay
}

func (p *Policy) MaxRecipesPerDay(sub *Subscription, now time.Time) int {
	if HasPremiumAccess(sub, now) {
		return Unlimited
	}
	return p.limits.RecipesPerDay
}

func (p *Policy) MaxCustomizationsPerDay(sub *Subscription, now time.Time) int {
	if HasPremiumAccess(sub, now) {
		return Unlimited
	}
	return p.limits.CustomizationsPerDay
}

// Summary is the entitlement view returned to clients.
type Summary struct {
	HasPremiumAccess        bool `json:"has_premium_access"`
	CanParseRecipe          bool `json:"can_parse_recipe"`
	MaxRecipesPerDay        int  `json:"max_recipes_per_day"`
	MaxCustomizationsPerDay int  `json:"max_customizations_per_day"`
	RecipesRemaining        int  `json:"recipes_remaining"`
	CustomizationsRemaining int  `json:"customizations_remaining"`
}

// Summarize evaluates every entitlement at once.
func (p *Policy) Summarize(sub *Subscription, usage *Usage, now time.Time) Summary {
	maxRecipes := p.MaxRecipesPerDay(sub, now)
	maxCustom := p.MaxCustomizationsPerDay(sub, now)
	return Summary{
		HasPremiumAccess:        HasPremiumAccess(sub, now),
		CanParseRecipe:          p.CanParseRecipe(sub, usage, now),
		MaxRecipesPerDay:        maxRecipes,
		MaxCustomizationsPerDay: maxCustom,
		RecipesRemaining:        remaining(maxRecipes, recipesParsed(usage)),
		CustomizationsRemaining: remaining(maxCustom, customizationsUsed(usage)),
	}
}

func recipesParsed(u *Usage) int {
	if u == nil {
		return 0
	}
	return u.RecipesParsed
}

func customizationsUsed(u *Usage) int {
	if u == nil {
		return 0
	}
	return u.CustomizationsUsed
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
