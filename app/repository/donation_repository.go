package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitmenuai/fitmenu/app/models"
)

type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a donation repository backed by GORM.
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) GetByUserID(userID uint) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// CreateIfNotExists inserts the donation unless a row for the same payment
// intent already exists. Redelivered checkout events are a no-op.
func (r *donationRepository) CreateIfNotExists(donation *models.Donation) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "payment_intent_id"},
		},
		DoNothing: true,
	}).Create(donation).Error
}
