package casino

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/shopspring/decimal"
)

const defaultFailureMessage = "Failed to deposit balance"

// Result is the normalized outcome of a bookmaker deposit.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

type CredentialSource interface {
	Resolve(ctx context.Context, bookmaker string) (*Credentials, bool)
}

type depositClient interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, creds *Credentials) (Result, error)
}

type Forwarder struct {
	credentials CredentialSource
	clients     map[string]depositClient
	metrics     *metrics.Metrics
	logger      *utils.Logger
}

func NewForwarder(credentials CredentialSource, cfg config.CasinoConfig, m *metrics.Metrics, logger *utils.Logger) *Forwarder {
	return &Forwarder{
		credentials: credentials,
		clients: map[string]depositClient{
			FamilyCashdesk: NewCashdeskClient(cfg.CashdeskURL, cfg.Timeout),
			FamilyMostbet:  NewMostbetClient(cfg.MostbetURL, cfg.MostbetBrandID, cfg.Currency, cfg.Timeout),
		},
		metrics: m,
		logger:  logger,
	}
}

// Deposit credits accountID at bookmaker. Errors and panics are folded into
// a failed Result.
func (f *Forwarder) Deposit(ctx context.Context, bookmaker, accountID string, amount decimal.Decimal) (res Result) {
	name := strings.ToLower(bookmaker)
	family := "unsupported"

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			f.logger.Errorf("Panic while depositing to %s: %v", bookmaker, r)
			res = failure(defaultFailureMessage)
		}
		f.metrics.ObserveDeposit(family, res.Success, time.Since(start))
	}()

	switch {
	case strings.Contains(name, "1xbet"), strings.Contains(name, "melbet"):
		family = FamilyCashdesk
	case strings.Contains(name, "mostbet"):
		family = FamilyMostbet
	case strings.Contains(name, "1win"):
		return failure("1win API not yet implemented")
	default:
		return failure(fmt.Sprintf("Unsupported bookmaker: %s", bookmaker))
	}

	creds, ok := f.credentials.Resolve(ctx, bookmaker)
	if !ok {
		return failure(fmt.Sprintf("%s API configuration not found", bookmaker))
	}

	f.logger.Infof("[Deposit] bookmaker=%s account=%s amount=%s", bookmaker, accountID, utils.FormatAmount(amount))

	result, err := f.clients[family].Deposit(ctx, accountID, amount, creds)
	if err != nil {
		f.logger.Errorf("[Deposit] %s failed for account %s: %v", bookmaker, accountID, err)
		msg := err.Error()
		if msg == "" {
			msg = defaultFailureMessage
		}
		return failure(msg)
	}
	if !result.Success && result.Message == "" {
		result.Message = defaultFailureMessage
	}
	return result
}
