package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RequestTypeDeposit  = "deposit"
	RequestTypeWithdraw = "withdraw"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
	StatusDeferred   = "deferred"

	// StatusLeft is a list filter only: every status except pending.
	StatusLeft = "left"
)

// IsDecided reports whether a status stamps processed_at.
func IsDecided(status string) bool {
	switch status {
	case StatusCompleted, StatusRejected, StatusApproved:
		return true
	}
	return false
}

type Request struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       int64           `gorm:"index;not null" json:"user_id"`
	Username     *string         `json:"username"`
	FirstName    *string         `json:"first_name"`
	LastName     *string         `json:"last_name"`
	Bookmaker    *string         `gorm:"index:idx_account_bookmaker,priority:2" json:"bookmaker"`
	AccountID    *string         `gorm:"index:idx_account_bookmaker,priority:1" json:"account_id"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	RequestType  string          `gorm:"index;not null" json:"request_type"`
	Bank         *string         `json:"bank"`
	Phone        *string         `json:"phone"`
	PhotoFileURL *string         `gorm:"type:text" json:"photo_file_url"`
	Status       string          `gorm:"index;not null;default:pending" json:"status"`
	StatusDetail *string         `json:"status_detail"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at"`

	IncomingPayments []IncomingPayment `gorm:"foreignKey:RequestID" json:"incoming_payments,omitempty"`
}

type IncomingPayment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RequestID   *uint           `gorm:"index" json:"request_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Bank        *string         `json:"bank"`
	PaymentDate time.Time       `json:"payment_date"`
	IsProcessed bool            `gorm:"default:false" json:"is_processed"`
	CreatedAt   time.Time       `json:"created_at"`
}

type BotUser struct {
	UserID            int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username          *string   `json:"username"`
	FirstName         *string   `json:"first_name"`
	LastName          *string   `json:"last_name"`
	Language          string    `gorm:"default:ru" json:"language"`
	SelectedBookmaker *string   `json:"selected_bookmaker"`
	Note              *string   `gorm:"type:text" json:"note"`
	CreatedAt         time.Time `json:"created_at"`

	Transactions     []BotUserTransaction `gorm:"foreignKey:UserID;references:UserID" json:"transactions"`
	ReferralMade     []Referral           `gorm:"foreignKey:ReferrerID;references:UserID" json:"referral_made"`
	ReferralEarnings []ReferralEarning    `gorm:"foreignKey:ReferrerID;references:UserID" json:"referral_earnings"`
}

type BotUserTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       int64           `gorm:"index" json:"user_id"`
	TransType    string          `json:"trans_type"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Status       string          `json:"status"`
	StatusDetail *string         `json:"status_detail"`
	Bookmaker    *string         `json:"bookmaker"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Referral struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID int64     `gorm:"index" json:"referrer_id"`
	ReferredID int64     `gorm:"index" json:"referred_id"`
	Referred   *BotUser  `gorm:"foreignKey:ReferredID;references:UserID" json:"referred,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReferralEarning struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ReferrerID       int64           `gorm:"index" json:"referrer_id"`
	ReferredID       int64           `json:"referred_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(12,2)" json:"commission_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

// BotConfiguration is a key/value settings row; Value holds a JSON document.
type BotConfiguration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AdminUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
