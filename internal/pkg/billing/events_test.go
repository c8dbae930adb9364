package billing

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
)

func makeEvent(t *testing.T, eventType string, payload string) stripe.Event {
	t.Helper()
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestParseEvent_CheckoutSessionCompleted(t *testing.T) {
	ev, err := ParseEvent(makeEvent(t, "checkout.session.completed", `{
		"id": "cs_test_123",
		"customer": "cus_123",
		"subscription": "sub_123",
		"metadata": {"userId": "42", "type": "subscription"}
	}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	checkout, ok := ev.(CheckoutCompletedEvent)
	if !ok {
		t.Fatalf("expected CheckoutCompletedEvent, got %T", ev)
	}
	if checkout.SessionID != "cs_test_123" || checkout.SubscriptionID != "sub_123" {
		t.Fatalf("unexpected ids: session=%q subscription=%q", checkout.SessionID, checkout.SubscriptionID)
	}
	if checkout.Metadata[MetadataUserIDKey] != "42" {
		t.Fatalf("expected userId metadata to survive parsing")
	}
}

func TestParseEvent_SubscriptionUpdated(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	ev, err := ParseEvent(makeEvent(t, "customer.subscription.updated", `{
		"id": "sub_123",
		"customer": "cus_123",
		"status": "active",
		"current_period_end": `+jsonInt(periodEnd)+`,
		"items": {"data": [{"price": {"id": "price_123"}}]},
		"metadata": {"userId": "42"}
	}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	changed, ok := ev.(SubscriptionChangedEvent)
	if !ok {
		t.Fatalf("expected SubscriptionChangedEvent, got %T", ev)
	}
	remote := changed.Subscription
	if remote.ID != "sub_123" || remote.CustomerID != "cus_123" || remote.PriceID != "price_123" {
		t.Fatalf("unexpected remote subscription: %+v", remote)
	}
	if remote.Status != "active" {
		t.Fatalf("expected status active, got %q", remote.Status)
	}
	if remote.CurrentPeriodEnd == nil || remote.CurrentPeriodEnd.Unix() != periodEnd {
		t.Fatalf("period end not mapped from unix seconds")
	}
	if uid, ok := remote.UserID(); !ok || uid != 42 {
		t.Fatalf("expected userId 42, got %d ok=%v", uid, ok)
	}
}

func TestParseEvent_SubscriptionDeleted(t *testing.T) {
	ev, err := ParseEvent(makeEvent(t, "customer.subscription.deleted", `{
		"id": "sub_123",
		"customer": "cus_123",
		"status": "canceled",
		"metadata": {"userId": "42"}
	}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, ok := ev.(SubscriptionDeletedEvent); !ok {
		t.Fatalf("expected SubscriptionDeletedEvent, got %T", ev)
	}
}

func TestParseEvent_Invoices(t *testing.T) {
	ev, err := ParseEvent(makeEvent(t, "invoice.payment_succeeded", `{"id": "in_1", "subscription": "sub_123"}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	paid, ok := ev.(InvoicePaidEvent)
	if !ok || paid.SubscriptionID != "sub_123" {
		t.Fatalf("unexpected event: %#v", ev)
	}

	ev, err = ParseEvent(makeEvent(t, "invoice.payment_failed", `{"id": "in_2", "subscription": "sub_123"}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	failed, ok := ev.(InvoicePaymentFailedEvent)
	if !ok || failed.SubscriptionID != "sub_123" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestParseEvent_UnknownType(t *testing.T) {
	ev, err := ParseEvent(makeEvent(t, "customer.updated", `{"id": "cus_123"}`))
	if err != nil {
		t.Fatalf("unknown event types must not error: %v", err)
	}
	unhandled, ok := ev.(UnhandledEvent)
	if !ok || unhandled.Type != "customer.updated" {
		t.Fatalf("expected UnhandledEvent for customer.updated, got %#v", ev)
	}
}

func TestParseEvent_MalformedPayload(t *testing.T) {
	if _, err := ParseEvent(makeEvent(t, "customer.subscription.updated", `{"id":`)); err == nil {
		t.Fatalf("malformed payload for a recognized type must error")
	}
}

func TestRemoteSubscriptionUserID(t *testing.T) {
	tests := []struct {
		metadata map[string]string
		want     uint
		ok       bool
	}{
		{metadata: map[string]string{"userId": "7"}, want: 7, ok: true},
		{metadata: map[string]string{"userId": "abc"}, ok: false},
		{metadata: map[string]string{"userId": "0"}, ok: false},
		{metadata: map[string]string{}, ok: false},
		{metadata: nil, ok: false},
	}
	for _, tt := range tests {
		remote := RemoteSubscription{Metadata: tt.metadata}
		got, ok := remote.UserID()
		if ok != tt.ok || got != tt.want {
			t.Fatalf("UserID() with %v = (%d, %v), want (%d, %v)", tt.metadata, got, ok, tt.want, tt.ok)
		}
	}
}

func jsonInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
