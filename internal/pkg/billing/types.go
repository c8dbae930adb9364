package billing

import (
	"strconv"
	"time"
)

// MetadataUserIDKey is the metadata key the checkout flow stamps on Stripe
// customers, checkout sessions and subscriptions so webhook events can be
// correlated back to a local user without guessing.
const MetadataUserIDKey = "userId"

// MetadataTypeKey distinguishes subscription checkouts from one-off donations.
const (
	MetadataTypeKey          = "type"
	CheckoutTypeSubscription = "subscription"
	CheckoutTypeDonation     = "donation"
)

// RemoteSubscription is the provider-agnostic shape of a subscription object
// as reported by the billing provider, either embedded in an event payload or
// fetched by id.
type RemoteSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	Status           string
	CurrentPeriodEnd *time.Time
	Metadata         map[string]string
}

// UserID extracts the local user id from the subscription metadata. The
// second return is false when the metadata is absent or unparseable; callers
// log and skip such events instead of failing the webhook request.
func (s RemoteSubscription) UserID() (uint, bool) {
	return parseUserID(s.Metadata)
}

// RemotePayment is the provider-agnostic shape of a completed one-off
// payment, used for the donation path.
type RemotePayment struct {
	PaymentIntentID string
	CustomerID      string
	Amount          int64
	Status          string
}

// CheckoutInput carries everything the provider needs to open a hosted
// checkout session.
type CheckoutInput struct {
	UserID     uint
	Email      string
	CustomerID string // reuse an existing provider customer when set
	PriceID    string
	SuccessURL string
	CancelURL  string
}

func parseUserID(metadata map[string]string) (uint, bool) {
	raw, ok := metadata[MetadataUserIDKey]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// FormatUserID renders a local user id the way it is stored in provider
// metadata.
func FormatUserID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
