package models

import "time"

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusPaused            = "paused"
)

// PeriodEndGrace keeps a subscription usable for a day past its period end so
// renewals that land slightly late do not lock paying users out.
const PeriodEndGrace = 24 * time.Hour

// Subscription mirrors the provider's subscription object for one user. Rows
// are written exclusively by the webhook reconciler; a canceled subscription
// keeps its row (status flips to canceled, ids are retained).
type Subscription struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	CustomerID       string     `gorm:"type:varchar(191);not null;index" json:"customer_id"`
	SubscriptionID   string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"subscription_id"`
	PriceID          string     `gorm:"type:varchar(191)" json:"price_id"`
	Status           string     `gorm:"type:varchar(32);not null;default:'incomplete'" json:"status"`
	CurrentPeriodEnd *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive is the single activity predicate used by the checkout duplicate
// check, the status reader and the menu gate. A subscription grants access iff
// its status is in the active set and the current period (plus grace) has not
// elapsed.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
	default:
		return false
	}
	if s.CurrentPeriodEnd == nil {
		return false
	}
	return s.CurrentPeriodEnd.Add(PeriodEndGrace).After(now)
}
