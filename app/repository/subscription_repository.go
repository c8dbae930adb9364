package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitmenuai/fitmenu/app/models"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert inserts the row on first sight of a user and updates it in place on
// every later event. updated_at is refreshed on update, created_at only set
// on insert.
func (r *subscriptionRepository) Upsert(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"subscription_id",
			"price_id",
			"status",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID and timestamps reflect the stored row after upsert.
	return r.db.Where("user_id = ?", sub.UserID).First(sub).Error
}
