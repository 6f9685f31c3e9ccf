// Package billing provides the application layer for premium checkout,
// subscription management and billing processor webhooks.
package billing

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

const checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// Metrics receives webhook observations. It may be nil.
type Metrics interface {
	RecordWebhook(eventType, outcome string)
}

// BillingService implements inbound.BillingService
type BillingService struct {
	provider  outbound.BillingProvider
	userRepo  outbound.UserRepository
	subRepo   outbound.SubscriptionRepository
	cfg       config.BillingConfig
	publicURL string
	metrics   Metrics
	logger    *zap.Logger
}

// NewBillingService creates a new billing service. publicURL is the browser
// facing origin checkout redirects back to.
func NewBillingService(
	provider outbound.BillingProvider,
	userRepo outbound.UserRepository,
	subRepo outbound.SubscriptionRepository,
	cfg config.BillingConfig,
	publicURL string,
	metrics Metrics,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		provider:  provider,
		userRepo:  userRepo,
		subRepo:   subRepo,
		cfg:       cfg,
		publicURL: strings.TrimRight(publicURL, "/"),
		metrics:   metrics,
		logger:    logger.Named("billing-service"),
	}
}

// CreateCheckoutSession starts a subscription checkout for the caller.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, caller inbound.Identity, locale recipe.Locale) (*outbound.CheckoutSession, error) {
	if _, err := s.userRepo.Ensure(ctx, caller.UserID, strings.ToLower(strings.TrimSpace(caller.Email))); err != nil {
		return nil, errors.NewDatabaseError("ensure user", err)
	}

	lang := recipe.ParseLocale(string(locale))
	session, err := s.provider.CreateCheckoutSession(ctx, outbound.CheckoutRequest{
		UserID:     caller.UserID.String(),
		Email:      caller.Email,
		SuccessURL: fmt.Sprintf("%s/%s/success?session_id=%s", s.publicURL, lang, checkoutSessionPlaceholder),
		CancelURL:  fmt.Sprintf("%s/%s/upgrade", s.publicURL, lang),
	})
	if err != nil {
		return nil, s.providerError(err, "Failed to create checkout session")
	}

	s.logger.Info("Checkout session created",
		zap.String("user_id", caller.UserID.String()),
		zap.String("session_id", session.ID),
	)
	return session, nil
}

// VerifySession confirms a checkout was paid and returns the subscription it
// produced if the webhook has already recorded it.
func (s *BillingService) VerifySession(ctx context.Context, sessionID string) (*inbound.VerifySessionResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.NewBadRequestError("Session ID is required")
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, s.providerError(err, "Failed to verify session")
	}
	if session.PaymentStatus != "paid" {
		return nil, errors.NewBadRequestError("Payment not completed").
			WithMetadata("payment_status", session.PaymentStatus)
	}
	if session.SubscriptionID == "" {
		return &inbound.VerifySessionResult{}, nil
	}

	sub, err := s.subRepo.FindByStripeSubscriptionID(ctx, session.SubscriptionID)
	if err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			// the webhook has not landed yet
			return &inbound.VerifySessionResult{}, nil
		}
		return nil, errors.NewDatabaseError("verify subscription", err).WithDetails("Failed to verify subscription")
	}
	return &inbound.VerifySessionResult{Subscription: sub}, nil
}

// CancelSubscription schedules the caller's subscription to end with the
// current period. Access continues until then.
func (s *BillingService) CancelSubscription(ctx context.Context, caller inbound.Identity) (*inbound.SubscriptionChange, error) {
	sub, err := s.subRepo.FindByUserID(ctx, caller.UserID)
	if err != nil && !stderrors.Is(err, outbound.ErrNotFound) {
		return nil, errors.NewDatabaseError("load subscription", err)
	}
	if sub == nil || sub.Status != subscription.StatusActive {
		return nil, errors.NewAppError(errors.CodeNotFound, "No active subscription found", "")
	}
	if sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
		return nil, errors.NewBadRequestError("No Stripe subscription ID found")
	}

	remote, err := s.provider.SetCancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID, true)
	if err != nil {
		return nil, s.providerError(err, "Failed to cancel subscription")
	}

	cancel := true
	update := outbound.SubscriptionUpdate{CancelAtPeriodEnd: &cancel}
	if remote.CurrentPeriodEnd != nil {
		update.CurrentPeriodEnd = remote.CurrentPeriodEnd
	}
	if err := s.subRepo.UpdateByUserID(ctx, caller.UserID, update); err != nil {
		return nil, errors.NewDatabaseError("update subscription", err).WithDetails("Failed to update subscription")
	}

	s.logger.Info("Subscription set to cancel at period end",
		zap.String("user_id", caller.UserID.String()),
		zap.String("subscription_id", *sub.StripeSubscriptionID),
	)
	return &inbound.SubscriptionChange{
		Message:          "Subscription canceled successfully. You will retain access until the end of your billing period.",
		CurrentPeriodEnd: firstTime(remote.CurrentPeriodEnd, sub.CurrentPeriodEnd),
	}, nil
}

// ReactivateSubscription undoes a cancellation, either pending or recorded.
func (s *BillingService) ReactivateSubscription(ctx context.Context, caller inbound.Identity) (*inbound.SubscriptionChange, error) {
	sub, err := s.subRepo.FindByUserID(ctx, caller.UserID)
	if err != nil && !stderrors.Is(err, outbound.ErrNotFound) {
		return nil, errors.NewDatabaseError("load subscription", err)
	}
	if sub == nil || !sub.Reactivatable() {
		return nil, errors.NewAppError(errors.CodeNotFound, "No canceled subscription found", "")
	}
	if sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
		return nil, errors.NewBadRequestError("No Stripe subscription ID found")
	}

	remote, err := s.provider.SetCancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID, false)
	if err != nil {
		return nil, s.providerError(err, "Failed to reactivate subscription")
	}

	cancel := false
	status := subscription.StatusActive
	if remote.Status != "" {
		status = subscription.Status(remote.Status)
	}
	update := outbound.SubscriptionUpdate{
		CancelAtPeriodEnd:  &cancel,
		Status:             &status,
		CurrentPeriodStart: remote.CurrentPeriodStart,
		CurrentPeriodEnd:   remote.CurrentPeriodEnd,
	}
	if err := s.subRepo.UpdateByUserID(ctx, caller.UserID, update); err != nil {
		return nil, errors.NewDatabaseError("update subscription", err).WithDetails("Failed to update subscription")
	}

	s.logger.Info("Subscription reactivated",
		zap.String("user_id", caller.UserID.String()),
		zap.String("subscription_id", *sub.StripeSubscriptionID),
	)
	return &inbound.SubscriptionChange{
		Message:          "Subscription reactivated successfully.",
		CurrentPeriodEnd: firstTime(remote.CurrentPeriodEnd, sub.CurrentPeriodEnd),
	}, nil
}

// ConfigStatus reports which billing settings are present and whether the
// configured price can be fetched.
func (s *BillingService) ConfigStatus(ctx context.Context) *inbound.BillingConfigStatus {
	status := &inbound.BillingConfigStatus{
		StripeConfigured: s.cfg.SecretKey != "",
		PriceID:          s.cfg.PriceID,
		PriceIDValid:     strings.HasPrefix(s.cfg.PriceID, "price_"),
		WebhookSecret:    s.cfg.WebhookSecret != "",
		PublishableKey:   s.cfg.PublishableKey != "",
	}
	if !status.StripeConfigured || !status.PriceIDValid {
		return status
	}

	price, err := s.provider.GetPrice(ctx, s.cfg.PriceID)
	if err != nil {
		status.PriceError = errorText(err)
		return status
	}
	status.Price = price
	return status
}

// HandleWebhook verifies and applies a billing event. Events for unknown
// subscriptions and unhandled event types are acknowledged without effect.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return errors.NewBadRequestError("No signature provided")
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			if appErr.Code == errors.CodeInvalidSignature {
				s.recordWebhook("unknown", "invalid_signature")
			}
			return appErr
		}
		return errors.NewInvalidSignatureError(err)
	}

	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))
	err = s.dispatch(ctx, logger, event)
	if err != nil {
		s.recordWebhook(event.Type, "failed")
		logger.Error("Webhook processing failed", zap.Error(err))
		if appErr, ok := errors.As(err); ok {
			return appErr
		}
		return errors.NewInternalError("Webhook processing failed").WithCause(err)
	}
	s.recordWebhook(event.Type, "processed")
	return nil
}

func (s *BillingService) dispatch(ctx context.Context, logger *zap.Logger, event *outbound.WebhookEvent) error {
	switch event.Type {
	case outbound.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, logger, event.CheckoutSession)

	case outbound.EventSubscriptionCreated, outbound.EventSubscriptionUpdated:
		remote := event.Subscription
		if remote == nil {
			return nil
		}
		status := subscription.Status(remote.Status)
		cancel := remote.CancelAtPeriodEnd
		return s.applyUpdate(ctx, logger, remote.ID, outbound.SubscriptionUpdate{
			Status:             &status,
			CurrentPeriodStart: remote.CurrentPeriodStart,
			CurrentPeriodEnd:   remote.CurrentPeriodEnd,
			CancelAtPeriodEnd:  &cancel,
		})

	case outbound.EventSubscriptionDeleted:
		if event.Subscription == nil {
			return nil
		}
		status := subscription.StatusCanceled
		return s.applyUpdate(ctx, logger, event.Subscription.ID, outbound.SubscriptionUpdate{Status: &status})

	case outbound.EventInvoicePaymentSucceeded, outbound.EventInvoicePaid, outbound.EventInvoicePaymentPaid:
		if event.Invoice == nil || event.Invoice.SubscriptionID == "" {
			logger.Info("Invoice without subscription ignored")
			return nil
		}
		status := subscription.StatusActive
		plan := subscription.PlanPremium
		return s.applyUpdate(ctx, logger, event.Invoice.SubscriptionID, outbound.SubscriptionUpdate{Status: &status, Plan: &plan})

	case outbound.EventInvoicePaymentFailed:
		if event.Invoice == nil || event.Invoice.SubscriptionID == "" {
			logger.Info("Invoice without subscription ignored")
			return nil
		}
		status := subscription.StatusPastDue
		return s.applyUpdate(ctx, logger, event.Invoice.SubscriptionID, outbound.SubscriptionUpdate{Status: &status})

	default:
		logger.Info("Unhandled webhook event")
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, logger *zap.Logger, session *outbound.CheckoutSession) error {
	if session == nil {
		return errors.NewBadRequestError("No user_id")
	}
	rawUserID := session.Metadata["user_id"]
	if rawUserID == "" {
		return errors.NewBadRequestError("No user_id")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return errors.NewBadRequestError("Invalid user_id")
	}
	if session.SubscriptionID == "" {
		return errors.NewBadRequestError("No subscription ID")
	}

	remote, err := s.provider.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return errors.NewInternalError("Webhook processing failed").WithCause(err)
	}

	customerID := firstString(session.CustomerID, remote.CustomerID)
	subID := session.SubscriptionID
	sub := &subscription.Subscription{
		UserID:               userID,
		StripeSubscriptionID: &subID,
		Status:               subscription.StatusActive,
		CurrentPeriodStart:   remote.CurrentPeriodStart,
		CurrentPeriodEnd:     remote.CurrentPeriodEnd,
		CancelAtPeriodEnd:    remote.CancelAtPeriodEnd,
	}
	if customerID != "" {
		sub.StripeCustomerID = &customerID
	}
	sub.SetPlan(subscription.PlanPremium)

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return errors.NewDatabaseError("upsert subscription", err)
	}
	logger.Info("Subscription activated",
		zap.String("user_id", userID.String()),
		zap.String("subscription_id", subID),
	)
	return nil
}

func (s *BillingService) applyUpdate(ctx context.Context, logger *zap.Logger, stripeSubID string, update outbound.SubscriptionUpdate) error {
	if stripeSubID == "" {
		logger.Info("Event without subscription id ignored")
		return nil
	}
	matched, err := s.subRepo.UpdateByStripeSubscriptionID(ctx, stripeSubID, update)
	if err != nil {
		return errors.NewInternalError("Webhook processing failed").WithCause(err)
	}
	if !matched {
		logger.Warn("Webhook for unknown subscription", zap.String("subscription_id", stripeSubID))
		return nil
	}
	logger.Info("Subscription updated", zap.String("subscription_id", stripeSubID))
	return nil
}

// providerError keeps typed provider failures and labels the rest.
func (s *BillingService) providerError(err error, message string) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	return errors.NewInternalError(message).WithCause(err)
}

func (s *BillingService) recordWebhook(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(eventType, outcome)
	}
}

func errorText(err error) string {
	if appErr, ok := errors.As(err); ok && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
