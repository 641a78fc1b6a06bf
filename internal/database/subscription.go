package database

import (
	"context"
	"errors"
	"fmt"

	"subscription-api/internal/models"
	"subscription-api/pkg/logging"

	"gorm.io/gorm"
)

// ErrActiveSubscriptionExists is returned when another active row for the user
// was committed first.
var ErrActiveSubscriptionExists = errors.New("user already has an active subscription")

// SubscriptionRepository provides access to the subscriptions table.
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a repository over db.
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindActiveForUser returns the active row with the latest expiry, or nil when the
// user has no active subscription.
func (r *SubscriptionRepository) FindActiveForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("expires_date DESC").
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &subscription, nil
}

// Insert appends a new row. IsActive is stored as given.
func (r *SubscriptionRepository) Insert(ctx context.Context, subscription *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(subscription).Error; err != nil {
		return fmt.Errorf("failed to insert subscription: %w", translateWriteError(err))
	}
	return nil
}

// translateWriteError reports a violation of the one-active-row index as
// ErrActiveSubscriptionExists. The gorm session must have TranslateError set.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrActiveSubscriptionExists
	}
	return err
}

// DeactivateAllForUser clears the active flag on every row of the user.
func (r *SubscriptionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	return deactivateAll(r.db.WithContext(ctx), userID)
}

func deactivateAll(tx *gorm.DB, userID string) (int64, error) {
	result := tx.Model(&models.Subscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate subscriptions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// History returns every row of the user, newest first.
func (r *SubscriptionRepository) History(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription history: %w", err)
	}
	return subscriptions, nil
}

// Supersede deactivates every row of the user and stores subscription as the
// newest one, in a single transaction. A resubmitted transaction id refreshes
// the existing row instead of adding a duplicate.
func (r *SubscriptionRepository) Supersede(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deactivated, err := deactivateAll(tx, subscription.UserID)
		if err != nil {
			return err
		}

		var existing models.Subscription
		err = tx.Where("user_id = ? AND transaction_id = ?", subscription.UserID, subscription.TransactionID).
			Order("id DESC").
			First(&existing).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up transaction: %w", err)
			}
			if err := tx.Create(subscription).Error; err != nil {
				return fmt.Errorf("failed to insert subscription: %w", translateWriteError(err))
			}
			logging.Infof("Subscription stored - user_id: %s, transaction_id: %s, active: %v, superseded: %d",
				subscription.UserID, subscription.TransactionID, subscription.IsActive, deactivated)
			return nil
		}

		subscription.ID = existing.ID
		subscription.CreatedAt = existing.CreatedAt
		if err := tx.Save(subscription).Error; err != nil {
			return fmt.Errorf("failed to refresh subscription: %w", translateWriteError(err))
		}
		logging.Infof("Subscription refreshed - user_id: %s, transaction_id: %s, active: %v",
			subscription.UserID, subscription.TransactionID, subscription.IsActive)
		return nil
	})
}

// CountActiveForUser returns how many rows of the user are flagged active.
func (r *SubscriptionRepository) CountActiveForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}
