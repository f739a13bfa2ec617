package casino

import (
	"bytes"
	"context"
	"crypto/md5"
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

const cashdeskLanguage = "ru"

// CashdeskClient talks to the cashdesk partner API shared by 1xbet and melbet.
type CashdeskClient struct {
	baseURL string
	client  *http.Client
}

func NewCashdeskClient(baseURL string, timeout time.Duration) *CashdeskClient {
	return &CashdeskClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type cashdeskDepositRequest struct {
	CashdeskID string      `json:"cashdeskid"`
	Lng        string      `json:"lng"`
	Summa      json.Number `json:"summa"`
	Confirm    string      `json:"confirm"`
}

type cashdeskDepositResponse struct {
	Success bool        `json:"Success"`
	Message string      `json:"Message"`
	Summa   json.Number `json:"Summa,omitempty"`
}

func (c *CashdeskClient) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, creds *Credentials) (Result, error) {
	summa := amount.String()
	body, err := json.Marshal(cashdeskDepositRequest{
		CashdeskID: creds.CashdeskID,
		Lng:        cashdeskLanguage,
		Summa:      json.Number(summa),
		Confirm:    md5Hex(accountID + ":" + creds.Hash),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode deposit: %w", err)
	}

	url := fmt.Sprintf("%s/Deposit/%s/Add", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("sign", cashdeskSign(accountID, summa, creds))

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("cashdesk request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read cashdesk response: %w", err)
	}

	var out cashdeskDepositResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("cashdesk returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("cashdesk returned status %d", resp.StatusCode)
		}
		return Result{Success: false, Message: msg, Data: out}, nil
	}

	msg := out.Message
	if msg == "" {
		msg = "Balance deposited successfully"
	}
	return Result{Success: true, Message: msg, Data: out}, nil
}

// cashdeskSign is sha256(sha256(hash part) + md5(cashier part)) in hex.
func cashdeskSign(accountID, summa string, creds *Credentials) string {
	a := sha256Hex(fmt.Sprintf("hash=%s&lng=%s&userid=%s", creds.Hash, cashdeskLanguage, accountID))
	b := md5Hex(fmt.Sprintf("summa=%s&cashierpass=%s&cashdeskid=%s", summa, creds.CashierPass, creds.CashdeskID))
	return sha256Hex(a + b)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
