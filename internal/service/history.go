package service

import (
	"context"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
)

const (
	historyLimitForUser = 50
	historyLimit        = 100
)

// TransactionHistory returns the newest requests, optionally of one actor
// and one type.
func (s *Service) TransactionHistory(ctx context.Context, userID *int64, requestType string) ([]models.Request, error) {
	limit := historyLimit
	if userID != nil {
		limit = historyLimitForUser
	}

	requests, _, err := s.repo.ListRequests(ctx, repository.RequestFilter{Type: requestType, UserID: userID}, 1, limit)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// DisplayName is "@username", "first last", the first name or "Unknown".
func DisplayName(req *models.Request) string {
	switch {
	case nonEmpty(req.Username):
		return "@" + *req.Username
	case nonEmpty(req.FirstName) && nonEmpty(req.LastName):
		return *req.FirstName + " " + *req.LastName
	case nonEmpty(req.FirstName):
		return *req.FirstName
	}
	return "Unknown"
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
