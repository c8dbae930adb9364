package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Event is the closed set of webhook notifications the reconciler knows how
// to apply. Everything else parses into UnhandledEvent, which is acknowledged
// without processing so the provider stops redelivering it.
type Event interface {
	EventType() string
}

// CheckoutCompletedEvent signals that a hosted checkout session finished.
// Subscription checkouts reference the new subscription by id; donation
// checkouts reference the payment intent.
type CheckoutCompletedEvent struct {
	SessionID       string
	SubscriptionID  string
	PaymentIntentID string
	CustomerID      string
	Metadata        map[string]string
}

func (CheckoutCompletedEvent) EventType() string { return "checkout.session.completed" }

// InvoicePaidEvent models a successful renewal charge.
type InvoicePaidEvent struct {
	InvoiceID      string
	SubscriptionID string
}

func (InvoicePaidEvent) EventType() string { return "invoice.payment_succeeded" }

// InvoicePaymentFailedEvent models a failed renewal charge; the refreshed
// remote status is expected to be past_due or unpaid.
type InvoicePaymentFailedEvent struct {
	InvoiceID      string
	SubscriptionID string
}

func (InvoicePaymentFailedEvent) EventType() string { return "invoice.payment_failed" }

// SubscriptionChangedEvent covers customer.subscription.created and .updated;
// the payload carries the full subscription object, no extra fetch needed.
type SubscriptionChangedEvent struct {
	Type         string
	Subscription RemoteSubscription
}

func (e SubscriptionChangedEvent) EventType() string { return e.Type }

// SubscriptionDeletedEvent ends a subscription. The local row is kept with
// status forced to canceled.
type SubscriptionDeletedEvent struct {
	Subscription RemoteSubscription
}

func (SubscriptionDeletedEvent) EventType() string { return "customer.subscription.deleted" }

// UnhandledEvent is the fallback variant for event types outside the closed
// set above.
type UnhandledEvent struct {
	Type string
}

func (e UnhandledEvent) EventType() string { return e.Type }

// Wire shapes for the payloads we care about. Local structs rather than the
// SDK's full object graph: only the listed fields feed reconciliation.
type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	Subscription  string            `json:"subscription"`
	PaymentIntent string            `json:"payment_intent"`
	Customer      string            `json:"customer"`
	Metadata      map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

type subscriptionPayload struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
	Items            struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (p subscriptionPayload) toRemote() RemoteSubscription {
	remote := RemoteSubscription{
		ID:         p.ID,
		CustomerID: p.Customer,
		Status:     p.Status,
		Metadata:   p.Metadata,
	}
	if p.CurrentPeriodEnd > 0 {
		end := time.Unix(p.CurrentPeriodEnd, 0).UTC()
		remote.CurrentPeriodEnd = &end
	}
	if len(p.Items.Data) > 0 {
		remote.PriceID = p.Items.Data[0].Price.ID
	}
	return remote
}

// ParseEvent maps a verified provider event onto the closed union. Malformed
// payloads for recognized types are an error (the provider should retry);
// unknown types are not.
func ParseEvent(ev stripe.Event) (Event, error) {
	switch string(ev.Type) {
	case "checkout.session.completed":
		var payload checkoutSessionPayload
		if err := json.Unmarshal(ev.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid checkout.session.completed payload: %w", err)
		}
		return CheckoutCompletedEvent{
			SessionID:       payload.ID,
			SubscriptionID:  payload.Subscription,
			PaymentIntentID: payload.PaymentIntent,
			CustomerID:      payload.Customer,
			Metadata:        payload.Metadata,
		}, nil

	case "invoice.payment_succeeded":
		var payload invoicePayload
		if err := json.Unmarshal(ev.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid invoice.payment_succeeded payload: %w", err)
		}
		return InvoicePaidEvent{InvoiceID: payload.ID, SubscriptionID: payload.Subscription}, nil

	case "invoice.payment_failed":
		var payload invoicePayload
		if err := json.Unmarshal(ev.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid invoice.payment_failed payload: %w", err)
		}
		return InvoicePaymentFailedEvent{InvoiceID: payload.ID, SubscriptionID: payload.Subscription}, nil

	case "customer.subscription.created", "customer.subscription.updated":
		var payload subscriptionPayload
		if err := json.Unmarshal(ev.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", ev.Type, err)
		}
		return SubscriptionChangedEvent{Type: string(ev.Type), Subscription: payload.toRemote()}, nil

	case "customer.subscription.deleted":
		var payload subscriptionPayload
		if err := json.Unmarshal(ev.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("invalid customer.subscription.deleted payload: %w", err)
		}
		return SubscriptionDeletedEvent{Subscription: payload.toRemote()}, nil

	default:
		return UnhandledEvent{Type: string(ev.Type)}, nil
	}
}
