package stripe

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/recipesimplifier/api/internal/ports/outbound"
)

// Payloads are decoded from raw JSON rather than the SDK structs so both the
// legacy top-level period fields and the newer per-item ones are understood.

// expandable is a Stripe reference that is either an id string or an
// expanded object carrying an id.
type expandable string

func (e *expandable) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = expandable(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandable(obj.ID)
	return nil
}

type sessionPayload struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	PaymentStatus     string            `json:"payment_status"`
	Customer          expandable        `json:"customer"`
	Subscription      expandable        `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func (p sessionPayload) toDomain() *outbound.CheckoutSession {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	if metadata["user_id"] == "" && p.ClientReferenceID != "" {
		metadata["user_id"] = p.ClientReferenceID
	}
	return &outbound.CheckoutSession{
		ID:             p.ID,
		URL:            p.URL,
		PaymentStatus:  p.PaymentStatus,
		CustomerID:     string(p.Customer),
		SubscriptionID: string(p.Subscription),
		Metadata:       metadata,
	}
}

type periodFields struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
}

type subscriptionPayload struct {
	periodFields
	ID                string     `json:"id"`
	Customer          expandable `json:"customer"`
	Status            string     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	Items             struct {
		Data []periodFields `json:"data"`
	} `json:"items"`
}

func (p subscriptionPayload) toDomain() *outbound.BillingSubscription {
	period := p.periodFields
	if period.CurrentPeriodEnd == 0 && len(p.Items.Data) > 0 {
		period = p.Items.Data[0]
	}
	return &outbound.BillingSubscription{
		ID:                 p.ID,
		CustomerID:         string(p.Customer),
		Status:             p.Status,
		CurrentPeriodStart: unixTime(period.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(period.CurrentPeriodEnd),
		CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
	}
}

type invoicePayload struct {
	ID           string     `json:"id"`
	Customer     expandable `json:"customer"`
	Subscription expandable `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription expandable `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p invoicePayload) toDomain() *outbound.Invoice {
	subID := string(p.Subscription)
	if subID == "" && p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		subID = string(p.Parent.SubscriptionDetails.Subscription)
	}
	return &outbound.Invoice{
		ID:             p.ID,
		CustomerID:     string(p.Customer),
		SubscriptionID: subID,
	}
}

type pricePayload struct {
	ID         string     `json:"id"`
	Active     bool       `json:"active"`
	Currency   string     `json:"currency"`
	UnitAmount int64      `json:"unit_amount"`
	Product    expandable `json:"product"`
	Recurring  *struct {
		Interval string `json:"interval"`
	} `json:"recurring"`
}

func (p pricePayload) toDomain() *outbound.Price {
	price := &outbound.Price{
		ID:         p.ID,
		Active:     p.Active,
		Currency:   p.Currency,
		UnitAmount: p.UnitAmount,
		ProductID:  string(p.Product),
	}
	if p.Recurring != nil {
		price.Interval = p.Recurring.Interval
	}
	return price
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
