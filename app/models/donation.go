package models

import "time"

const DonationStatusSucceeded = "succeeded"

// Donation records a one-off payment. Independent of subscriptions; created
// once per successful donation checkout and never mutated afterwards.
type Donation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PaymentIntentID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"payment_intent_id"`
	CustomerID      string    `gorm:"type:varchar(191)" json:"customer_id"`
	Amount          int64     `gorm:"not null;default:0" json:"amount"`
	Status          string    `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDonor reports whether this donation grants donor perks.
func (d *Donation) IsDonor() bool {
	return d != nil && d.Status == DonationStatusSucceeded
}
