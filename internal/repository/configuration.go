package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/payments_admin/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetConfiguration(ctx context.Context, key string) (*models.BotConfiguration, error) {
	var setting models.BotConfiguration
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration %q: %w", key, err)
	}
	return &setting, nil
}

// SetConfiguration inserts or replaces a settings value.
func (r *Repository) SetConfiguration(ctx context.Context, key, value string) error {
	setting := models.BotConfiguration{Key: key, Value: value, UpdatedAt: r.now()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).
		Error
	if err != nil {
		return fmt.Errorf("failed to save configuration %q: %w", key, err)
	}
	return nil
}
