package server

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/shopspring/decimal"
)

// Views keep the camelCase field names the dashboard reads. Actor ids are
// sent as strings since Telegram ids exceed the JS safe integer range.

type requestView struct {
	ID           uint       `json:"id"`
	UserID       string     `json:"userId"`
	Username     *string    `json:"username"`
	FirstName    *string    `json:"firstName"`
	LastName     *string    `json:"lastName"`
	Bookmaker    *string    `json:"bookmaker"`
	AccountID    *string    `json:"accountId"`
	Amount       string     `json:"amount"`
	RequestType  string     `json:"requestType"`
	Bank         *string    `json:"bank"`
	Phone        *string    `json:"phone"`
	PhotoFileURL *string    `json:"photoFileUrl"`
	Status       string     `json:"status"`
	StatusDetail *string    `json:"statusDetail"`
	CreatedAt    time.Time  `json:"createdAt"`
	ProcessedAt  *time.Time `json:"processedAt"`
}

func newRequestView(r *models.Request) requestView {
	return requestView{
		ID:           r.ID,
		UserID:       strconv.FormatInt(r.UserID, 10),
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Bookmaker:    r.Bookmaker,
		AccountID:    r.AccountID,
		Amount:       utils.FormatAmount(r.Amount),
		RequestType:  r.RequestType,
		Bank:         r.Bank,
		Phone:        r.Phone,
		PhotoFileURL: r.PhotoFileURL,
		Status:       r.Status,
		StatusDetail: r.StatusDetail,
		CreatedAt:    r.CreatedAt,
		ProcessedAt:  r.ProcessedAt,
	}
}

func newRequestViews(requests []models.Request) []requestView {
	views := make([]requestView, 0, len(requests))
	for i := range requests {
		views = append(views, newRequestView(&requests[i]))
	}
	return views
}

type incomingPaymentView struct {
	ID          uint      `json:"id"`
	RequestID   *uint     `json:"requestId"`
	Amount      string    `json:"amount"`
	Bank        *string   `json:"bank"`
	PaymentDate time.Time `json:"paymentDate"`
	IsProcessed bool      `json:"isProcessed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// casinoTransactionView is the short row of the account history table.
type casinoTransactionView struct {
	ID          uint      `json:"id"`
	UserID      string    `json:"userId"`
	Username    *string   `json:"username"`
	FirstName   *string   `json:"firstName"`
	LastName    *string   `json:"lastName"`
	Amount      string    `json:"amount"`
	RequestType string    `json:"requestType"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	Bookmaker   *string   `json:"bookmaker"`
	AccountID   *string   `json:"accountId"`
}

type requestDetailView struct {
	requestView
	UserNote           *string                 `json:"userNote"`
	IncomingPayments   []incomingPaymentView   `json:"incomingPayments"`
	CasinoTransactions []casinoTransactionView `json:"casinoTransactions"`
}

func newRequestDetailView(d *service.RequestDetail) requestDetailView {
	view := requestDetailView{
		requestView:        newRequestView(d.Request),
		UserNote:           d.UserNote,
		IncomingPayments:   make([]incomingPaymentView, 0, len(d.Request.IncomingPayments)),
		CasinoTransactions: make([]casinoTransactionView, 0, len(d.CasinoTransactions)),
	}
	for _, p := range d.Request.IncomingPayments {
		view.IncomingPayments = append(view.IncomingPayments, incomingPaymentView{
			ID:          p.ID,
			RequestID:   p.RequestID,
			Amount:      utils.FormatAmount(p.Amount),
			Bank:        p.Bank,
			PaymentDate: p.PaymentDate,
			IsProcessed: p.IsProcessed,
			CreatedAt:   p.CreatedAt,
		})
	}
	for _, t := range d.CasinoTransactions {
		view.CasinoTransactions = append(view.CasinoTransactions, casinoTransactionView{
			ID:          t.ID,
			UserID:      strconv.FormatInt(t.UserID, 10),
			Username:    t.Username,
			FirstName:   t.FirstName,
			LastName:    t.LastName,
			Amount:      utils.FormatAmount(t.Amount),
			RequestType: t.RequestType,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
			Bookmaker:   t.Bookmaker,
			AccountID:   t.AccountID,
		})
	}
	return view
}

type paginationView struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type requestPageView struct {
	Requests   []requestView  `json:"requests"`
	Pagination paginationView `json:"pagination"`
}

// historyEntry keeps the snake_case names the bot and mini-app consume.
type historyEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	AccountID       string     `json:"account_id"`
	UserDisplayName string     `json:"user_display_name"`
	Username        string     `json:"username"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Type            string     `json:"type"`
	Amount          string     `json:"amount"`
	Status          string     `json:"status"`
	StatusDetail    *string    `json:"status_detail"`
	Bookmaker       string     `json:"bookmaker"`
	Bank            string     `json:"bank"`
	Phone           string     `json:"phone"`
	Date            time.Time  `json:"date"`
	CreatedAt       time.Time  `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at"`
}

func newHistoryEntry(r *models.Request) historyEntry {
	return historyEntry{
		ID:              strconv.FormatUint(uint64(r.ID), 10),
		UserID:          strconv.FormatInt(r.UserID, 10),
		AccountID:       deref(r.AccountID),
		UserDisplayName: service.DisplayName(r),
		Username:        deref(r.Username),
		FirstName:       deref(r.FirstName),
		LastName:        deref(r.LastName),
		Type:            r.RequestType,
		Amount:          utils.FormatAmount(r.Amount),
		Status:          r.Status,
		StatusDetail:    r.StatusDetail,
		Bookmaker:       deref(r.Bookmaker),
		Bank:            deref(r.Bank),
		Phone:           deref(r.Phone),
		Date:            r.CreatedAt,
		CreatedAt:       r.CreatedAt,
		ProcessedAt:     r.ProcessedAt,
	}
}

type userTransactionView struct {
	ID           uint      `json:"id"`
	TransType    string    `json:"transType"`
	Amount       string    `json:"amount"`
	Status       string    `json:"status"`
	StatusDetail *string   `json:"status_detail"`
	Bookmaker    *string   `json:"bookmaker"`
	CreatedAt    time.Time `json:"createdAt"`
}

type referredView struct {
	UserID    string  `json:"userId"`
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type referralView struct {
	ID         uint          `json:"id"`
	ReferrerID string        `json:"referrerId"`
	ReferredID string        `json:"referredId"`
	Referred   *referredView `json:"referred"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type earningView struct {
	ID               uint      `json:"id"`
	ReferrerID       string    `json:"referrerId"`
	ReferredID       string    `json:"referredId"`
	Amount           string    `json:"amount"`
	CommissionAmount string    `json:"commissionAmount"`
	CreatedAt        time.Time `json:"createdAt"`
}

type userCountsView struct {
	Transactions     int64 `json:"transactions"`
	ReferralMade     int64 `json:"referralMade"`
	ReferralEarnings int64 `json:"referralEarnings"`
}

type userView struct {
	UserID            string                `json:"userId"`
	Username          *string               `json:"username"`
	FirstName         *string               `json:"firstName"`
	LastName          *string               `json:"lastName"`
	Language          string                `json:"language"`
	SelectedBookmaker *string               `json:"selectedBookmaker"`
	Note              *string               `json:"note"`
	CreatedAt         time.Time             `json:"createdAt"`
	Transactions      []userTransactionView `json:"transactions"`
	ReferralMade      []referralView        `json:"referralMade"`
	ReferralEarnings  []earningView         `json:"referralEarnings"`
	Count             userCountsView        `json:"_count"`
	Synthesized       bool                  `json:"synthesized"`
}

func newUserView(d *service.UserDetail) userView {
	u := d.User
	view := userView{
		UserID:            strconv.FormatInt(u.UserID, 10),
		Username:          u.Username,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Language:          u.Language,
		SelectedBookmaker: u.SelectedBookmaker,
		Note:              u.Note,
		CreatedAt:         u.CreatedAt,
		Transactions:      make([]userTransactionView, 0, len(u.Transactions)),
		ReferralMade:      make([]referralView, 0, len(u.ReferralMade)),
		ReferralEarnings:  make([]earningView, 0, len(u.ReferralEarnings)),
		Count: userCountsView{
			Transactions:     d.Counts.Transactions,
			ReferralMade:     d.Counts.ReferralMade,
			ReferralEarnings: d.Counts.ReferralEarnings,
		},
		Synthesized: d.Synthesized,
	}

	for _, t := range u.Transactions {
		view.Transactions = append(view.Transactions, userTransactionView{
			ID:           t.ID,
			TransType:    t.TransType,
			Amount:       utils.FormatAmount(t.Amount),
			Status:       t.Status,
			StatusDetail: t.StatusDetail,
			Bookmaker:    t.Bookmaker,
			CreatedAt:    t.CreatedAt,
		})
	}
	for _, r := range u.ReferralMade {
		ref := referralView{
			ID:         r.ID,
			ReferrerID: strconv.FormatInt(r.ReferrerID, 10),
			ReferredID: strconv.FormatInt(r.ReferredID, 10),
			CreatedAt:  r.CreatedAt,
		}
		if r.Referred != nil {
			ref.Referred = &referredView{
				UserID:    strconv.FormatInt(r.Referred.UserID, 10),
				Username:  r.Referred.Username,
				FirstName: r.Referred.FirstName,
				LastName:  r.Referred.LastName,
			}
		}
		view.ReferralMade = append(view.ReferralMade, ref)
	}
	for _, e := range u.ReferralEarnings {
		view.ReferralEarnings = append(view.ReferralEarnings, earningView{
			ID:               e.ID,
			ReferrerID:       strconv.FormatInt(e.ReferrerID, 10),
			ReferredID:       strconv.FormatInt(e.ReferredID, 10),
			Amount:           utils.FormatAmount(e.Amount),
			CommissionAmount: utils.FormatAmount(e.CommissionAmount),
			CreatedAt:        e.CreatedAt,
		})
	}
	return view
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// flexible accepts a JSON string, a number or null. The mini-app and the
// bot send ids and amounts either way.
type flexible string

func (f *flexible) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexible(strings.TrimSpace(s))
		return nil
	}
	n, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	if n.IsZero() {
		*f = ""
		return nil
	}
	*f = flexible(data)
	return nil
}

func (f flexible) String() string {
	return string(f)
}

// present treats empty strings and zero numbers as missing.
func (f flexible) present() bool {
	return f != ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
