package events

import (
	"time"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/utils"
)

const (
	KindCreated       = "request.created"
	KindStatusChanged = "request.status_changed"
)

// RequestEvent is the message written to the request events topic.
type RequestEvent struct {
	Kind         string     `json:"kind"`
	RequestID    uint       `json:"request_id"`
	UserID       int64      `json:"user_id"`
	RequestType  string     `json:"request_type"`
	Status       string     `json:"status"`
	StatusDetail *string    `json:"status_detail,omitempty"`
	Amount       string     `json:"amount"`
	Bookmaker    *string    `json:"bookmaker,omitempty"`
	AccountID    *string    `json:"account_id,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

func NewRequestEvent(kind string, req *models.Request, at time.Time) RequestEvent {
	return RequestEvent{
		Kind:         kind,
		RequestID:    req.ID,
		UserID:       req.UserID,
		RequestType:  req.RequestType,
		Status:       req.Status,
		StatusDetail: req.StatusDetail,
		Amount:       utils.FormatAmount(req.Amount),
		Bookmaker:    req.Bookmaker,
		AccountID:    req.AccountID,
		ProcessedAt:  req.ProcessedAt,
		OccurredAt:   at,
	}
}
