package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/payments_admin/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin %s: %w", username, err)
	}
	return &admin, nil
}

func (r *Repository) CreateAdmin(ctx context.Context, admin *models.AdminUser) error {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin %s: %w", admin.Username, err)
	}
	return nil
}
