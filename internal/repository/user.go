package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/payments_admin/internal/models"
	"gorm.io/gorm"
)

const (
	userTransactionsLimit = 50
	userEarningsLimit     = 20
)

// UserCounts mirrors the relation counters shown on the user page.
type UserCounts struct {
	Transactions     int64
	ReferralMade     int64
	ReferralEarnings int64
}

// GetBotUser loads a bot user with the latest transactions, referrals and
// referral earnings.
func (r *Repository) GetBotUser(ctx context.Context, userID int64) (*models.BotUser, error) {
	var user models.BotUser
	err := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(userTransactionsLimit)
		}).
		Preload("ReferralMade.Referred").
		Preload("ReferralEarnings", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(userEarningsLimit)
		}).
		First(&user, "user_id = ?", userID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bot user %d: %w", userID, err)
	}
	return &user, nil
}

func (r *Repository) CountUserRelations(ctx context.Context, userID int64) (UserCounts, error) {
	var counts UserCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.BotUserTransaction{}).Where("user_id = ?", userID).Count(&counts.Transactions).Error; err != nil {
		return counts, fmt.Errorf("failed to count transactions: %w", err)
	}
	if err := db.Model(&models.Referral{}).Where("referrer_id = ?", userID).Count(&counts.ReferralMade).Error; err != nil {
		return counts, fmt.Errorf("failed to count referrals: %w", err)
	}
	if err := db.Model(&models.ReferralEarning{}).Where("referrer_id = ?", userID).Count(&counts.ReferralEarnings).Error; err != nil {
		return counts, fmt.Errorf("failed to count referral earnings: %w", err)
	}
	return counts, nil
}

// GetUserNote returns the staff note of a bot user, nil when there is none.
func (r *Repository) GetUserNote(ctx context.Context, userID int64) (*string, error) {
	var user models.BotUser
	err := r.db.WithContext(ctx).Select("user_id", "note").First(&user, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note of user %d: %w", userID, err)
	}
	if user.Note == nil || *user.Note == "" {
		return nil, nil
	}
	return user.Note, nil
}
