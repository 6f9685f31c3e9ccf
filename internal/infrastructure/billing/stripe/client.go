// Package stripe adapts the Stripe API to the billing port.
package stripe

import (
	"context"
	"encoding/json"
	"errors"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
)

// Client implements outbound.BillingProvider.
type Client struct {
	api           *client.API
	priceID       string
	webhookSecret string
	logger        *zap.Logger
}

// New creates a Stripe client. backends may be nil to use Stripe's servers.
// Without a secret key every API call fails as not configured.
func New(cfg config.BillingConfig, backends *stripego.Backends, logger *zap.Logger) *Client {
	c := &Client{
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.Named("stripe"),
	}
	if cfg.SecretKey != "" {
		c.api = &client.API{}
		c.api.Init(cfg.SecretKey, backends)
	} else {
		c.logger.Warn("Stripe secret key not configured, billing is disabled")
	}
	return c
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req outbound.CheckoutRequest) (*outbound.CheckoutSession, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.priceID == "" {
		return nil, apperrors.NewNotConfiguredError("Stripe price")
	}

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			Price:    stripego.String(c.priceID),
			Quantity: stripego.Int64(1),
		}},
		SuccessURL:        stripego.String(req.SuccessURL),
		CancelURL:         stripego.String(req.CancelURL),
		ClientReferenceID: stripego.String(req.UserID),
	}
	if req.Email != "" {
		params.CustomerEmail = stripego.String(req.Email)
	}
	params.AddMetadata("user_id", req.UserID)
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, c.apiError("create checkout session", err)
	}
	var payload sessionPayload
	if err := decodeRaw(session.LastResponse, &payload); err != nil {
		return nil, c.apiError("decode checkout session", err)
	}
	c.logger.Info("checkout session created",
		zap.String("session_id", payload.ID),
		zap.String("user_id", req.UserID))
	return payload.toDomain(), nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*outbound.CheckoutSession, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, c.apiError("retrieve checkout session", err)
	}
	var payload sessionPayload
	if err := decodeRaw(session.LastResponse, &payload); err != nil {
		return nil, c.apiError("decode checkout session", err)
	}
	return payload.toDomain(), nil
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*outbound.BillingSubscription, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, c.apiError("retrieve subscription", err)
	}
	var payload subscriptionPayload
	if err := decodeRaw(sub.LastResponse, &payload); err != nil {
		return nil, c.apiError("decode subscription", err)
	}
	return payload.toDomain(), nil
}

func (c *Client) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*outbound.BillingSubscription, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	params := &stripego.SubscriptionParams{
		CancelAtPeriodEnd: stripego.Bool(cancel),
	}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, c.apiError("update subscription", err)
	}
	var payload subscriptionPayload
	if err := decodeRaw(sub.LastResponse, &payload); err != nil {
		return nil, c.apiError("decode subscription", err)
	}
	c.logger.Info("subscription cancel flag updated",
		zap.String("subscription_id", id),
		zap.Bool("cancel_at_period_end", cancel))
	return payload.toDomain(), nil
}

func (c *Client) GetPrice(ctx context.Context, id string) (*outbound.Price, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	params := &stripego.PriceParams{}
	params.Context = ctx

	p, err := c.api.Prices.Get(id, params)
	if err != nil {
		return nil, c.apiError("retrieve price", err)
	}
	var payload pricePayload
	if err := decodeRaw(p.LastResponse, &payload); err != nil {
		return nil, c.apiError("decode price", err)
	}
	return payload.toDomain(), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
// payloads the service handles. Other event types come back with only ID and
// Type set.
func (c *Client) ParseWebhook(payload []byte, signature string) (*outbound.WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, apperrors.NewNotConfiguredError("Stripe webhook secret")
	}
	if signature == "" {
		return nil, apperrors.NewBadRequestError("No signature")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.logger.Warn("webhook signature verification failed", zap.Error(err))
		return nil, apperrors.NewInvalidSignatureError(err)
	}

	out := &outbound.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}
	raw := event.Data.Raw

	switch out.Type {
	case outbound.EventCheckoutCompleted:
		var p sessionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperrors.NewBadRequestError("Malformed checkout session payload").WithCause(err)
		}
		out.CheckoutSession = p.toDomain()
	case outbound.EventSubscriptionCreated, outbound.EventSubscriptionUpdated, outbound.EventSubscriptionDeleted:
		var p subscriptionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperrors.NewBadRequestError("Malformed subscription payload").WithCause(err)
		}
		out.Subscription = p.toDomain()
	case outbound.EventInvoicePaymentSucceeded, outbound.EventInvoicePaid, outbound.EventInvoicePaymentPaid, outbound.EventInvoicePaymentFailed:
		var p invoicePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperrors.NewBadRequestError("Malformed invoice payload").WithCause(err)
		}
		out.Invoice = p.toDomain()
	}
	return out, nil
}

func (c *Client) ready() error {
	if c.api == nil {
		return apperrors.NewNotConfiguredError("Stripe")
	}
	return nil
}

func (c *Client) apiError(op string, err error) error {
	c.logger.Error("stripe request failed", zap.String("operation", op), zap.Error(err))
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
		return apperrors.NewNotFoundError("billing resource").WithCause(err)
	}
	return apperrors.NewExternalServiceError("Stripe", err)
}

func decodeRaw(resp *stripego.APIResponse, v interface{}) error {
	if resp == nil || len(resp.RawJSON) == 0 {
		return errors.New("empty response")
	}
	return json.Unmarshal(resp.RawJSON, v)
}
