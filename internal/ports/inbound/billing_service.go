package inbound

import (
	"context"
	"time"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/ports/outbound"
)

// BillingService covers checkout, subscription management and webhooks.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, caller Identity, locale recipe.Locale) (*outbound.CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (*VerifySessionResult, error)
	CancelSubscription(ctx context.Context, caller Identity) (*SubscriptionChange, error)
	ReactivateSubscription(ctx context.Context, caller Identity) (*SubscriptionChange, error)
	ConfigStatus(ctx context.Context) *BillingConfigStatus
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// VerifySessionResult reports what a completed checkout produced.
type VerifySessionResult struct {
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
}

// SubscriptionChange is the result of a cancel or reactivate request.
type SubscriptionChange struct {
	Message          string     `json:"message"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// BillingConfigStatus reports which billing settings are present.
type BillingConfigStatus struct {
	StripeConfigured bool            `json:"stripeConfigured"`
	PriceID          string          `json:"priceId"`
	PriceIDValid     bool            `json:"priceIdValid"`
	WebhookSecret    bool            `json:"webhookSecret"`
	PublishableKey   bool            `json:"publishableKey"`
	Price            *outbound.Price `json:"price,omitempty"`
	PriceError       string          `json:"priceError,omitempty"`
}
