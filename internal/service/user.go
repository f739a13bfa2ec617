package service

import (
	"context"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
)

const synthesizedTransactionsLimit = 50

type UserDetail struct {
	User   *models.BotUser
	Counts repository.UserCounts
	// Synthesized is set when the actor never started the bot and the
	// profile was rebuilt from their requests.
	Synthesized bool
}

func (s *Service) GetUserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	user, err := s.repo.GetBotUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		counts, err := s.repo.CountUserRelations(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &UserDetail{User: user, Counts: counts}, nil
	}

	latest, err := s.repo.GetLatestRequestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrUserNotFound
	}

	requests, err := s.repo.ListRequestsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return synthesizeUser(latest, requests), nil
}

func synthesizeUser(latest *models.Request, requests []models.Request) *UserDetail {
	user := &models.BotUser{
		UserID:            latest.UserID,
		Username:          latest.Username,
		FirstName:         latest.FirstName,
		LastName:          latest.LastName,
		Language:          "ru",
		SelectedBookmaker: latest.Bookmaker,
		CreatedAt:         latest.CreatedAt,
		Transactions:      []models.BotUserTransaction{},
		ReferralMade:      []models.Referral{},
		ReferralEarnings:  []models.ReferralEarning{},
	}

	for i, req := range requests {
		if i == synthesizedTransactionsLimit {
			break
		}
		user.Transactions = append(user.Transactions, models.BotUserTransaction{
			ID:           req.ID,
			UserID:       req.UserID,
			TransType:    req.RequestType,
			Amount:       req.Amount,
			Status:       req.Status,
			StatusDetail: req.StatusDetail,
			Bookmaker:    req.Bookmaker,
			CreatedAt:    req.CreatedAt,
		})
	}

	return &UserDetail{
		User:        user,
		Counts:      repository.UserCounts{Transactions: int64(len(requests))},
		Synthesized: true,
	}
}
