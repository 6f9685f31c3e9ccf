package handlers

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/infrastructure/http/respond"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// maxWebhookBody matches the processor's documented payload ceiling.
const maxWebhookBody = 65536

// BillingAPIHandlers handles checkout, subscription management and webhooks
type BillingAPIHandlers struct {
	billingService inbound.BillingService
	logger         *zap.Logger
}

// NewBillingAPIHandlers creates a new billing API handlers instance
func NewBillingAPIHandlers(billingService inbound.BillingService, logger *zap.Logger) *BillingAPIHandlers {
	return &BillingAPIHandlers{
		billingService: billingService,
		logger:         logger.Named("billing-api"),
	}
}

type CheckoutRequest struct {
	Locale string `json:"locale,omitempty"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type VerifySessionRequest struct {
	SessionID string `json:"sessionId"`
}

type VerifySessionResponse struct {
	Success bool `json:"success"`
	*inbound.VerifySessionResult
}

type SubscriptionChangeResponse struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// CreateCheckoutSession handles POST /api/create-checkout-session
func (h *BillingAPIHandlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	session, err := h.billingService.CreateCheckoutSession(r.Context(), caller, recipe.ParseLocale(req.Locale))
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// VerifySession handles POST /api/verify-session
func (h *BillingAPIHandlers) VerifySession(w http.ResponseWriter, r *http.Request) {
	var req VerifySessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	result, err := h.billingService.VerifySession(r.Context(), req.SessionID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, VerifySessionResponse{Success: true, VerifySessionResult: result})
}

// CancelSubscription handles POST /api/cancel-subscription
func (h *BillingAPIHandlers) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	change, err := h.billingService.CancelSubscription(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, SubscriptionChangeResponse{
		Success:          true,
		Message:          change.Message,
		CurrentPeriodEnd: change.CurrentPeriodEnd,
	})
}

// ReactivateSubscription handles POST /api/reactivate-subscription
func (h *BillingAPIHandlers) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	change, err := h.billingService.ReactivateSubscription(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, SubscriptionChangeResponse{
		Success:          true,
		Message:          change.Message,
		CurrentPeriodEnd: change.CurrentPeriodEnd,
	})
}

// ConfigStatus handles GET /api/test-stripe
func (h *BillingAPIHandlers) ConfigStatus(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, h.logger, http.StatusOK, h.billingService.ConfigStatus(r.Context()))
}

// StripeWebhook handles POST /api/webhooks/stripe. The raw body is needed
// for signature verification, so it is read before any decoding.
func (h *BillingAPIHandlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		respond.Error(w, r, h.logger, errors.NewBadRequestError("Failed to read body").WithCause(err))
		return
	}
	if len(payload) > maxWebhookBody {
		respond.Error(w, r, h.logger, errors.NewBadRequestError("Request body too large"))
		return
	}

	if err := h.billingService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, map[string]bool{"received": true})
}
