package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Fi44er/payments_admin/internal/events"
	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
	// MaxPage keeps (page-1)*limit inside int32 for every database driver.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// statuses a staff decision can start from
var decidable = []string{models.StatusPending, models.StatusDeferred}

type NewRequest struct {
	UserID       int64
	Username     *string
	FirstName    *string
	LastName     *string
	Bookmaker    *string
	AccountID    *string
	Amount       decimal.Decimal
	RequestType  string
	Bank         *string
	Phone        *string
	PhotoFileURL *string
}

type RequestPage struct {
	Requests   []models.Request
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

type RequestDetail struct {
	Request            *models.Request
	UserNote           *string
	CasinoTransactions []models.Request
}

// RequestChanges is the body of a staff PATCH.
type RequestChanges struct {
	Status           *string
	StatusDetail     *string
	ProcessedAt      *time.Time
	ClearProcessedAt bool
}

type DepositInput struct {
	RequestID uint
	Bookmaker string
	AccountID string
	Amount    decimal.Decimal
}

type DepositOutcome struct {
	Message string
	Request *models.Request
}

func validRequestType(t string) bool {
	return t == models.RequestTypeDeposit || t == models.RequestTypeWithdraw
}

func (s *Service) CreateRequest(ctx context.Context, in NewRequest) (*models.Request, error) {
	return s.createRequest(ctx, in, "staff")
}

func (s *Service) createRequest(ctx context.Context, in NewRequest, channel string) (*models.Request, error) {
	if !validRequestType(in.RequestType) {
		return nil, invalid("Invalid request type: %s", in.RequestType)
	}

	req := &models.Request{
		UserID:       in.UserID,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bookmaker:    in.Bookmaker,
		AccountID:    in.AccountID,
		Amount:       in.Amount,
		RequestType:  in.RequestType,
		Bank:         in.Bank,
		Phone:        in.Phone,
		PhotoFileURL: in.PhotoFileURL,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Infof("Request %d created: user=%d type=%s amount=%s channel=%s",
		req.ID, req.UserID, req.RequestType, req.Amount.StringFixed(2), channel)
	s.metrics.RequestCreated(req.RequestType, channel)
	s.afterChange(events.KindCreated, req)
	return req, nil
}

func (s *Service) ListRequests(ctx context.Context, filter repository.RequestFilter, page, limit int) (*RequestPage, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	requests, total, err := s.repo.ListRequests(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	return &RequestPage{
		Requests:   requests,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// GetRequestDetail returns the request, the staff note of its actor and
// the history of the same bookmaker account across all actors.
func (s *Service) GetRequestDetail(ctx context.Context, id uint) (*RequestDetail, error) {
	req, err := s.repo.GetRequestDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	note, err := s.repo.GetUserNote(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	detail := &RequestDetail{Request: req, UserNote: note, CasinoTransactions: []models.Request{}}
	if req.AccountID != nil && *req.AccountID != "" {
		related, err := s.repo.ListRelatedRequests(ctx, *req.AccountID, req.Bookmaker, repository.RelatedRequestsLimit)
		if err != nil {
			return nil, err
		}
		detail.CasinoTransactions = related
	}
	return detail, nil
}

// PatchRequest routes decision statuses through the lifecycle; anything
// else goes through updateOutsideLifecycle.
func (s *Service) PatchRequest(ctx context.Context, id uint, changes RequestChanges) (*models.Request, error) {
	patch := repository.RequestPatch{
		Status:           changes.Status,
		StatusDetail:     changes.StatusDetail,
		ProcessedAt:      changes.ProcessedAt,
		ClearProcessedAt: changes.ClearProcessedAt,
	}
	if changes.Status == nil {
		return s.updateOutsideLifecycle(ctx, id, patch)
	}

	var (
		req *models.Request
		err error
	)
	switch status := *changes.Status; status {
	case models.StatusApproved, models.StatusCompleted:
		req, err = s.Approve(ctx, id, status)
	case models.StatusRejected:
		req, err = s.Reject(ctx, id)
	case models.StatusDeferred:
		req, err = s.Defer(ctx, id)
	default:
		return s.updateOutsideLifecycle(ctx, id, patch)
	}
	if err != nil || changes.StatusDetail == nil {
		return req, err
	}

	updated, err := s.repo.UpdateRequest(ctx, id, repository.RequestPatch{StatusDetail: changes.StatusDetail})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrRequestNotFound
	}
	return updated, nil
}

// updateOutsideLifecycle stores changes that are not staff decisions.
// Decided requests keep their status, a request being forwarded cannot be
// touched, and processed_at stays set exactly on decided requests.
func (s *Service) updateOutsideLifecycle(ctx context.Context, id uint, patch repository.RequestPatch) (*models.Request, error) {
	before, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, ErrRequestNotFound
	}
	decided := models.IsDecided(before.Status)

	if patch.Status == nil {
		switch {
		case decided && patch.ClearProcessedAt && patch.ProcessedAt == nil:
			return nil, invalid("processedAt cannot be cleared on a decided request")
		case !decided && patch.ProcessedAt != nil:
			return nil, invalid("processedAt can only be set on a decided request")
		}
		updated, err := s.repo.UpdateRequest(ctx, id, patch)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, ErrRequestNotFound
		}
		return updated, nil
	}

	switch *patch.Status {
	case models.StatusProcessing, models.StatusLeft:
		return nil, invalid("invalid status transition")
	}
	if decided || before.Status == models.StatusProcessing {
		return nil, invalid("request already processed")
	}
	if !models.IsDecided(*patch.Status) {
		patch.ProcessedAt = nil
		patch.ClearProcessedAt = true
	}

	// compare-and-set on the status read above
	ok, err := s.repo.TransitionRequest(ctx, id, []string{before.Status}, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("request already processed")
	}
	if *patch.Status == before.Status {
		return s.reload(ctx, id)
	}
	return s.reloadChanged(ctx, id)
}

// Approve decides a pending or deferred request. Deposits with a bookmaker
// account are forwarded first and end as completed.
func (s *Service) Approve(ctx context.Context, id uint, status string) (*models.Request, error) {
	if status != models.StatusApproved && status != models.StatusCompleted {
		return nil, invalid("invalid status transition")
	}

	req, err := s.decidableRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if forwardable(req) {
		outcome, err := s.forwardAndComplete(ctx, req, *req.Bookmaker, *req.AccountID, req.Amount)
		if err != nil {
			return nil, err
		}
		return outcome.Request, nil
	}

	return s.transition(ctx, req, decidable, status)
}

func (s *Service) Reject(ctx context.Context, id uint) (*models.Request, error) {
	req, err := s.decidableRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, req, decidable, models.StatusRejected)
}

func (s *Service) Defer(ctx context.Context, id uint) (*models.Request, error) {
	req, err := s.decidableRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, invalid("invalid status transition")
	}
	return s.transition(ctx, req, []string{models.StatusPending}, models.StatusDeferred)
}

// DepositBalance forwards a deposit with caller supplied account details and
// marks the request completed.
func (s *Service) DepositBalance(ctx context.Context, in DepositInput) (*DepositOutcome, error) {
	if in.RequestID == 0 || strings.TrimSpace(in.Bookmaker) == "" || strings.TrimSpace(in.AccountID) == "" || !in.Amount.IsPositive() {
		return nil, invalid("Missing required fields: requestId, bookmaker, accountId, amount")
	}

	req, err := s.decidableRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	return s.forwardAndComplete(ctx, req, in.Bookmaker, in.AccountID, in.Amount)
}

func (s *Service) decidableRequest(ctx context.Context, id uint) (*models.Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if !isDecidable(req.Status) {
		return nil, invalid("request already processed")
	}
	return req, nil
}

func isDecidable(status string) bool {
	for _, st := range decidable {
		if st == status {
			return true
		}
	}
	return false
}

func forwardable(req *models.Request) bool {
	return req.RequestType == models.RequestTypeDeposit &&
		req.Bookmaker != nil && *req.Bookmaker != "" &&
		req.AccountID != nil && *req.AccountID != "" &&
		req.Amount.IsPositive()
}

func (s *Service) transition(ctx context.Context, req *models.Request, from []string, status string) (*models.Request, error) {
	ok, err := s.repo.TransitionRequest(ctx, req.ID, from, repository.RequestPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("request already processed")
	}
	return s.reloadChanged(ctx, req.ID)
}

// forwardAndComplete claims the request, forwards the deposit and then either
// completes the request or restores the status it had before the claim.
func (s *Service) forwardAndComplete(ctx context.Context, req *models.Request, bookmaker, accountID string, amount decimal.Decimal) (*DepositOutcome, error) {
	prior := req.Status
	processing := models.StatusProcessing

	claimed, err := s.repo.TransitionRequest(ctx, req.ID, decidable, repository.RequestPatch{Status: &processing})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, invalid("request already processed")
	}

	result := s.forwarder.Deposit(ctx, bookmaker, accountID, amount)
	if !result.Success {
		s.logger.Warnf("Deposit for request %d to %s failed: %s", req.ID, bookmaker, result.Message)
		restored, err := s.repo.TransitionRequest(context.WithoutCancel(ctx), req.ID, []string{processing}, repository.RequestPatch{Status: &prior})
		if err != nil || !restored {
			s.logger.Errorf("Failed to restore request %d to %s: restored=%t err=%v", req.ID, prior, restored, err)
		}
		return nil, &UpstreamError{Message: result.Message}
	}

	completed := models.StatusCompleted
	done, err := s.repo.TransitionRequest(context.WithoutCancel(ctx), req.ID, []string{processing}, repository.RequestPatch{Status: &completed})
	if err != nil {
		return nil, fmt.Errorf("deposit succeeded but request %d was not completed: %w", req.ID, err)
	}
	if !done {
		return nil, fmt.Errorf("deposit succeeded but request %d left processing state", req.ID)
	}

	s.logger.Infof("Deposit for request %d to %s account %s completed", req.ID, bookmaker, accountID)
	updated, err := s.reloadChanged(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &DepositOutcome{Message: result.Message, Request: updated}, nil
}

func (s *Service) reload(ctx context.Context, id uint) (*models.Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *Service) reloadChanged(ctx context.Context, id uint) (*models.Request, error) {
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.statusChanged(updated)
	return updated, nil
}

func (s *Service) statusChanged(req *models.Request) {
	s.logger.Infof("Request %d is now %s", req.ID, req.Status)
	s.metrics.StatusChanged(req.RequestType, req.Status)
	s.afterChange(events.KindStatusChanged, req)
}
