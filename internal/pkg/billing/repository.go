package billing

import (
	"errors"

	"gorm.io/gorm"

	"github.com/fitmenuai/fitmenu/app/models"
	"github.com/fitmenuai/fitmenu/app/repository"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetSubscriptionByUserID(userID uint) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error
	GetDonationByUserID(userID uint) (*models.Donation, error)
	CreateDonationIfNotExists(donation *models.Donation) error
}

type gormRepository struct {
	subs      repository.SubscriptionRepository
	donations repository.DonationRepository
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{
		subs:      repository.NewSubscriptionRepository(db),
		donations: repository.NewDonationRepository(db),
	}
}

func (r *gormRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	return r.subs.GetByUserID(userID)
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.subs.Upsert(sub)
}

func (r *gormRepository) GetDonationByUserID(userID uint) (*models.Donation, error) {
	return r.donations.GetByUserID(userID)
}

func (r *gormRepository) CreateDonationIfNotExists(donation *models.Donation) error {
	return r.donations.CreateIfNotExists(donation)
}

// IsNotFound reports whether err is the datastore's "row absent" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
