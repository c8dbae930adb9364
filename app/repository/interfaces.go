package repository

import (
	"github.com/fitmenuai/fitmenu/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// SubscriptionRepository defines the interface for subscription rows. Writes
// go through Upsert, keyed by user id (one logical row per user).
type SubscriptionRepository interface {
	GetByUserID(userID uint) (*models.Subscription, error)
	Upsert(sub *models.Subscription) error
}

// DonationRepository defines the interface for one-off donation records.
type DonationRepository interface {
	GetByUserID(userID uint) (*models.Donation, error)
	CreateIfNotExists(donation *models.Donation) error
}
