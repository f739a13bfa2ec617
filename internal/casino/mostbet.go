package casino

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	mostbetProject         = "MBC"
	mostbetTimestampLayout = "2006-01-02 15:04:05"
)

type MostbetClient struct {
	baseURL  string
	brandID  int
	currency string
	client   *http.Client
	now      func() time.Time
}

func NewMostbetClient(baseURL string, brandID int, currency string, timeout time.Duration) *MostbetClient {
	return &MostbetClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		brandID:  brandID,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

type mostbetDepositRequest struct {
	BrandID  int         `json:"brandId"`
	PlayerID string      `json:"playerId"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

func (c *MostbetClient) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, creds *Credentials) (Result, error) {
	body, err := json.Marshal(mostbetDepositRequest{
		BrandID:  c.brandID,
		PlayerID: accountID,
		Amount:   json.Number(amount.String()),
		Currency: c.currency,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode deposit: %w", err)
	}

	path := fmt.Sprintf("/mbc/gateway/v1/api/cashpoint/%s/player/deposit", creds.CashpointID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	timestamp := c.now().UTC().Format(mostbetTimestampLayout)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", creds.APIKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", mostbetSign(creds, path, body, timestamp))
	req.Header.Set("X-Project", mostbetProject)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("mostbet request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read mostbet response: %w", err)
	}

	var data map[string]interface{}
	_ = json.Unmarshal(raw, &data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := text(data["message"])
		if msg == "" {
			msg = fmt.Sprintf("mostbet returned status %d", resp.StatusCode)
		}
		return Result{Success: false, Message: msg, Data: data}, nil
	}
	return Result{Success: true, Message: "Balance deposited successfully", Data: data}, nil
}

// mostbetSign is hex(HMAC-SHA256(secret, apiKey + path + body + timestamp)).
func mostbetSign(creds *Credentials, path string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(creds.Secret))
	mac.Write([]byte(creds.APIKey + path + string(body) + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
