package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/utils"
)

const intakeCreatedMessage = "Заявка успешно создана"

// Field names accepted from the bot and mini-app, in priority order.
var (
	actorIDFields   = []string{"telegram_user_id", "userId", "user_id", "playerId"}
	accountIDFields = []string{"account_id", "user_id", "userId", "playerId"}
)

type IntakeResult struct {
	ID            uint   `json:"id"`
	TransactionID uint   `json:"transactionId"`
	Message       string `json:"message"`
}

// CreateFromExternal stores a request submitted by the bot or mini-app.
// The body is decoded with json.Decoder.UseNumber.
func (s *Service) CreateFromExternal(ctx context.Context, body map[string]interface{}) (*IntakeResult, error) {
	actorID, hasActor := firstField(body, actorIDFields)
	requestType, hasType := field(body, "type")
	rawAmount, hasAmount := field(body, "amount")
	if !hasActor || !hasType || !hasAmount {
		s.logger.Warnf("Intake rejected, missing fields: actor=%t type=%t amount=%t", hasActor, hasType, hasAmount)
		return nil, invalid("Missing required fields: userId, type, amount")
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(actorID), 10, 64)
	if err != nil {
		return nil, invalid("Invalid userId format")
	}

	amount, err := utils.ParseAmount(rawAmount)
	if err != nil {
		return nil, invalid("Invalid amount format")
	}

	in := NewRequest{
		UserID:       userID,
		Username:     optionalField(body, "telegram_username"),
		FirstName:    optionalField(body, "telegram_first_name"),
		LastName:     optionalField(body, "telegram_last_name"),
		Bookmaker:    optionalField(body, "bookmaker"),
		Amount:       amount,
		RequestType:  requestType,
		Bank:         optionalField(body, "bank"),
		Phone:        optionalField(body, "phone"),
		PhotoFileURL: optionalField(body, "receipt_photo"),
	}
	if account, ok := firstField(body, accountIDFields); ok {
		in.AccountID = &account
	}

	req, err := s.createRequest(ctx, in, "external")
	if err != nil {
		return nil, err
	}
	return &IntakeResult{ID: req.ID, TransactionID: req.ID, Message: intakeCreatedMessage}, nil
}

// UpdateFromExternal records a result reported by the bot for a request that
// is still undecided. The bot performs those deposits itself, so nothing is
// forwarded here.
func (s *Service) UpdateFromExternal(ctx context.Context, id uint, status string, statusDetail *string) (*models.Request, error) {
	if id == 0 || strings.TrimSpace(status) == "" {
		return nil, invalid("Missing required fields: id, status")
	}
	if statusDetail != nil && *statusDetail == "" {
		statusDetail = nil
	}
	return s.updateOutsideLifecycle(ctx, id, repository.RequestPatch{Status: &status, StatusDetail: statusDetail})
}

func firstField(body map[string]interface{}, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := field(body, name); ok {
			return v, true
		}
	}
	return "", false
}

// field returns the value as text. Empty strings, zero numbers and
// non-scalar values count as absent.
func field(body map[string]interface{}, name string) (string, bool) {
	switch v := body[name].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return "", false
		}
		return v.String(), true
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func optionalField(body map[string]interface{}, name string) *string {
	if v, ok := field(body, name); ok {
		return &v
	}
	return nil
}
