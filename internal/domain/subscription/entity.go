// Package subscription models a user's plan, their daily usage counters and
// the entitlement rules that combine the two.
package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the commercial tier.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPremium  Plan = "premium"
	PlanLifetime Plan = "lifetime"
)

// Premium reports whether the plan carries premium features.
func (p Plan) Premium() bool {
	return p == PlanPremium || p == PlanLifetime
}

// Status mirrors the billing processor's subscription status. Unknown values
// from the processor are stored verbatim.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusCanceled   Status = "canceled"
	StatusPastDue    Status = "past_due"
	StatusTrialing   Status = "trialing"
	StatusIncomplete Status = "incomplete"
	StatusUnpaid     Status = "unpaid"
)

// Subscription is a user's current plan. A user has at most one.
type Subscription struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty"`
	Status               Status     `json:"status"`
	Plan                 Plan       `json:"plan"`
	IsPremium            bool       `json:"is_premium"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	GrantedBy            *uuid.UUID `json:"granted_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Free returns the implicit subscription of a user with no stored row.
func Free(userID uuid.UUID) *Subscription {
	return &Subscription{
		UserID: userID,
		Status: StatusInactive,
		Plan:   PlanFree,
	}
}

// SetPlan changes the plan and keeps IsPremium consistent with it.
func (s *Subscription) SetPlan(plan Plan) {
	s.Plan = plan
	s.IsPremium = plan.Premium()
}

// PendingCancellation reports whether the subscription will end at the close
// of the current period.
func (s *Subscription) PendingCancellation() bool {
	return s.Status == StatusActive && s.CancelAtPeriodEnd
}

// Reactivatable reports whether a cancellation can be undone.
func (s *Subscription) Reactivatable() bool {
	return s.Status == StatusCanceled || s.PendingCancellation()
}

// Usage is one user's counters for a single UTC day.
type Usage struct {
	UserID             uuid.UUID `json:"user_id"`
	Date               time.Time `json:"date"`
	RecipesParsed      int       `json:"recipes_parsed"`
	CustomizationsUsed int       `json:"customizations_used"`
}

// EmptyUsage is the usage of a day without any recorded activity.
func EmptyUsage(userID uuid.UUID, day time.Time) *Usage {
	return &Usage{UserID: userID, Date: Day(day)}
}

// Day truncates t to midnight UTC, the key usage is counted under.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
