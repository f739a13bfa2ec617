package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/payments_admin/internal/models"
	"gorm.io/gorm"
)

// RelatedRequestsLimit caps a player's history on the request detail page.
const RelatedRequestsLimit = 100

type RequestFilter struct {
	Type   string
	Status string
	UserID *int64
}

// RequestPatch is a partial update. Nil fields are left untouched.
type RequestPatch struct {
	Status       *string
	StatusDetail *string
	ProcessedAt  *time.Time
	// ClearProcessedAt writes NULL into processed_at.
	ClearProcessedAt bool
}

func (p RequestPatch) columns(now time.Time) map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.StatusDetail != nil {
		cols["status_detail"] = *p.StatusDetail
	}
	if p.ClearProcessedAt {
		cols["processed_at"] = nil
	}
	if p.ProcessedAt != nil {
		cols["processed_at"] = *p.ProcessedAt
	}
	if p.Status != nil && models.IsDecided(*p.Status) {
		cols["processed_at"] = now
	}
	return cols
}

func (r *Repository) CreateRequest(ctx context.Context, req *models.Request) error {
	req.Status = models.StatusPending
	req.CreatedAt = r.now()
	req.ProcessedAt = nil

	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *Repository) GetRequest(ctx context.Context, id uint) (*models.Request, error) {
	return r.getRequest(r.db.WithContext(ctx), id)
}

// GetRequestDetail loads the request together with its incoming payments.
func (r *Repository) GetRequestDetail(ctx context.Context, id uint) (*models.Request, error) {
	return r.getRequest(r.db.WithContext(ctx).Preload("IncomingPayments"), id)
}

func (r *Repository) getRequest(db *gorm.DB, id uint) (*models.Request, error) {
	var req models.Request
	err := db.Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %d: %w", id, err)
	}
	return &req, nil
}

func (r *Repository) filtered(ctx context.Context, filter RequestFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Request{})
	if filter.Type != "" {
		q = q.Where("request_type = ?", filter.Type)
	}
	switch filter.Status {
	case "":
	case models.StatusLeft:
		q = q.Where("status <> ?", models.StatusPending)
	default:
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	return q
}

// ListRequests returns one page (1-based) newest first and the total count.
func (r *Repository) ListRequests(ctx context.Context, filter RequestFilter, page, limit int) ([]models.Request, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []models.Request
	err := r.filtered(ctx, filter).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&requests).
		Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, total, nil
}

// ListRelatedRequests returns requests of one bookmaker account across all
// actors. A nil bookmaker matches rows without a bookmaker.
func (r *Repository) ListRelatedRequests(ctx context.Context, accountID string, bookmaker *string, limit int) ([]models.Request, error) {
	if limit <= 0 || limit > RelatedRequestsLimit {
		limit = RelatedRequestsLimit
	}

	q := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if bookmaker == nil {
		q = q.Where("bookmaker IS NULL")
	} else {
		q = q.Where("bookmaker = ?", *bookmaker)
	}

	var requests []models.Request
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests of account %s: %w", accountID, err)
	}
	return requests, nil
}

func (r *Repository) GetLatestRequestByUser(ctx context.Context, userID int64) (*models.Request, error) {
	var req models.Request
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&req).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest request of user %d: %w", userID, err)
	}
	return &req, nil
}

func (r *Repository) ListRequestsByUser(ctx context.Context, userID int64) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&requests).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests of user %d: %w", userID, err)
	}
	return requests, nil
}

// UpdateRequest applies the patch and returns the stored row, or nil when the
// id does not exist.
func (r *Repository) UpdateRequest(ctx context.Context, id uint, patch RequestPatch) (*models.Request, error) {
	tx, err := r.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	updated, err := r.updateRequest(tx, id, patch)
	if err != nil {
		r.Rollback(tx)
		return nil, err
	}
	if updated == nil {
		r.Rollback(tx)
		return nil, nil
	}

	if err := r.Commit(tx); err != nil {
		return nil, fmt.Errorf("failed to commit request update: %w", err)
	}
	return updated, nil
}

func (r *Repository) updateRequest(tx *gorm.DB, id uint, patch RequestPatch) (*models.Request, error) {
	current, err := r.getRequest(tx, id)
	if err != nil || current == nil {
		return nil, err
	}

	cols := patch.columns(r.now())
	if len(cols) == 0 {
		return current, nil
	}

	err = r.WithTransaction(tx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Updates(cols).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to update request %d: %w", id, err)
	}

	return r.getRequest(tx, id)
}

// TransitionRequest updates the row only while its status is one of from.
// It reports whether the row was changed.
func (r *Repository) TransitionRequest(ctx context.Context, id uint, from []string, patch RequestPatch) (bool, error) {
	cols := patch.columns(r.now())
	if len(cols) == 0 {
		return false, errors.New("empty request patch")
	}

	tx := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(cols)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to transition request %d: %w", id, tx.Error)
	}
	return tx.RowsAffected == 1, nil
}
