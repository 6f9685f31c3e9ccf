package outbound

import (
	"context"
	"time"

	"github.com/recipesimplifier/api/internal/domain/recipe"
)

// ScrapedPage is what extraction needs from a fetched recipe page.
type ScrapedPage struct {
	URL   string
	Title string
	// Text is the visible body text, whitespace collapsed and truncated.
	Text string
	// Image is the best candidate picture, or empty when none qualified.
	Image string
}

// PageScraper fetches a page and extracts its title, text and main image.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*ScrapedPage, error)
}

// ExtractionRequest is the input to a recipe extractor.
type ExtractionRequest struct {
	Page           *ScrapedPage
	Locale         recipe.Locale
	Customizations recipe.Customizations
}

// RecipeExtractor turns a scraped page into a structured recipe.
type RecipeExtractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*recipe.ParsedRecipe, error)
}

// CheckoutRequest describes a subscription checkout to create.
type CheckoutRequest struct {
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor's view of a checkout.
type CheckoutSession struct {
	ID             string
	URL            string
	PaymentStatus  string
	CustomerID     string
	SubscriptionID string
	Metadata       map[string]string
}

// BillingSubscription is the processor's view of a subscription.
type BillingSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
}

// Invoice carries the fields webhook handling needs from an invoice.
type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
}

// Price describes a configured price.
type Price struct {
	ID         string `json:"id"`
	Active     bool   `json:"active"`
	Currency   string `json:"currency"`
	UnitAmount int64  `json:"unit_amount"`
	Interval   string `json:"interval,omitempty"`
	ProductID  string `json:"product,omitempty"`
}

// Billing event types the service reacts to.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentPaid      = "invoice.payment_paid"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// WebhookEvent is a verified billing event. Exactly one of the payload
// pointers is set for the event types the service handles.
type WebhookEvent struct {
	ID              string
	Type            string
	CheckoutSession *CheckoutSession
	Subscription    *BillingSubscription
	Invoice         *Invoice
}

// BillingProvider is the payment processor.
type BillingProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*BillingSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*BillingSubscription, error)
	GetPrice(ctx context.Context, id string) (*Price, error)
	// ParseWebhook verifies signature over payload and decodes the event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
