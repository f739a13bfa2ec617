package casino

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	err    error
}

func (s *fakeStore) GetConfiguration(_ context.Context, key string) (*models.BotConfiguration, error) {
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return &models.BotConfiguration{Key: key, Value: v}, nil
}

func testCasinoConfig() config.CasinoConfig {
	return config.CasinoConfig{
		Timeout:            5 * time.Second,
		MostbetBrandID:     1,
		Currency:           "KGS",
		XbetHash:           "xhash",
		XbetCashierPass:    "xpass",
		XbetLogin:          "xlogin",
		XbetCashdeskID:     "1388580",
		MelbetHash:         "mhash",
		MelbetCashierPass:  "mpass",
		MelbetLogin:        "mlogin",
		MostbetAPIKey:      "api-key:abc",
		MostbetSecret:      "secret",
		MostbetCashpointID: "117753",
	}
}

func TestResolverUsesStoredOverride(t *testing.T) {
	store := &fakeStore{values: map[string]string{
		"1xbet_api_config":   `{"hash":"h","cashierpass":"p","login":"l","cashdeskid":12345678901234567890}`,
		"mostbet_api_config": `"{\"api_key\":\"k\",\"secret\":\"s\",\"cashpoint_id\":42}"`,
	}}
	r := NewResolver(store, FallbacksFromConfig(testCasinoConfig()), utils.NewNopLogger())

	creds, ok := r.Resolve(context.Background(), "1XBET KG")
	require.True(t, ok)
	assert.Equal(t, FamilyCashdesk, creds.Family)
	assert.Equal(t, "h", creds.Hash)
	assert.Equal(t, "12345678901234567890", creds.CashdeskID)

	creds, ok = r.Resolve(context.Background(), "mostbet")
	require.True(t, ok)
	assert.Equal(t, "k", creds.APIKey)
	assert.Equal(t, "42", creds.CashpointID)
}

func TestResolverFallsBack(t *testing.T) {
	fallbacks := FallbacksFromConfig(testCasinoConfig())

	t.Run("incomplete override", func(t *testing.T) {
		store := &fakeStore{values: map[string]string{"1xbet_api_config": `{"hash":"h","login":"l"}`}}
		creds, ok := NewResolver(store, fallbacks, utils.NewNopLogger()).Resolve(context.Background(), "1xbet")
		require.True(t, ok)
		assert.Equal(t, "xhash", creds.Hash)
		assert.Equal(t, "1388580", creds.CashdeskID)
	})

	t.Run("malformed override", func(t *testing.T) {
		store := &fakeStore{values: map[string]string{"1xbet_api_config": `not json`}}
		creds, ok := NewResolver(store, fallbacks, utils.NewNopLogger()).Resolve(context.Background(), "1xbet")
		require.True(t, ok)
		assert.Equal(t, "xhash", creds.Hash)
	})

	t.Run("store error", func(t *testing.T) {
		store := &fakeStore{err: errors.New("db down")}
		creds, ok := NewResolver(store, fallbacks, utils.NewNopLogger()).Resolve(context.Background(), "mostbet")
		require.True(t, ok)
		assert.Equal(t, "api-key:abc", creds.APIKey)
	})

	t.Run("incomplete fallback", func(t *testing.T) {
		store := &fakeStore{}
		_, ok := NewResolver(store, fallbacks, utils.NewNopLogger()).Resolve(context.Background(), "melbet")
		assert.False(t, ok)
	})

	t.Run("unknown bookmaker", func(t *testing.T) {
		store := &fakeStore{}
		_, ok := NewResolver(store, fallbacks, utils.NewNopLogger()).Resolve(context.Background(), "pinnacle")
		assert.False(t, ok)
	})
}

func TestCashdeskDeposit(t *testing.T) {
	creds := &Credentials{Family: FamilyCashdesk, Hash: "h", CashierPass: "p", Login: "l", CashdeskID: "1388580"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Deposit/55/Add", r.URL.Path)
		assert.Equal(t, cashdeskSign("55", "100", creds), r.Header.Get("sign"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1388580", body["cashdeskid"])
		assert.Equal(t, "ru", body["lng"])
		assert.EqualValues(t, 100, body["summa"])
		assert.Equal(t, md5Hex("55:h"), body["confirm"])

		_, _ = w.Write([]byte(`{"Success":true,"Message":"Deposited","Summa":100}`))
	}))
	defer server.Close()

	client := NewCashdeskClient(server.URL+"/", time.Second)
	res, err := client.Deposit(context.Background(), "55", decimal.RequireFromString("100.00"), creds)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Deposited", res.Message)
}

func TestMostbetDepositSignsRequest(t *testing.T) {
	creds := &Credentials{Family: FamilyMostbet, APIKey: "k", Secret: "s", CashpointID: "117753"}
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mbc/gateway/v1/api/cashpoint/117753/player/deposit", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2025-03-01 10:00:00", r.Header.Get("X-Timestamp"))
		assert.Equal(t, "MBC", r.Header.Get("X-Project"))
		assert.Len(t, r.Header.Get("X-Signature"), 64)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Player not found"}`))
	}))
	defer server.Close()

	client := NewMostbetClient(server.URL, 1, "KGS", time.Second)
	client.now = func() time.Time { return fixed }

	res, err := client.Deposit(context.Background(), "777", decimal.RequireFromString("50"), creds)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Player not found", res.Message)
}

type panickingSource struct{}

func (panickingSource) Resolve(context.Context, string) (*Credentials, bool) {
	panic("boom")
}

func TestForwarderDispatch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"Success":true,"Message":"ok"}`))
	}))
	defer server.Close()

	cfg := testCasinoConfig()
	cfg.CashdeskURL = server.URL
	m := metrics.New(prometheus.NewRegistry())
	resolver := NewResolver(&fakeStore{}, FallbacksFromConfig(cfg), utils.NewNopLogger())
	f := NewForwarder(resolver, cfg, m, utils.NewNopLogger())
	ctx := context.Background()
	amount := decimal.RequireFromString("100.00")

	res := f.Deposit(ctx, "1xbet", "55", amount)
	assert.True(t, res.Success)
	assert.EqualValues(t, 1, hits.Load())

	res = f.Deposit(ctx, "1WIN", "55", amount)
	assert.False(t, res.Success)
	assert.Equal(t, "1win API not yet implemented", res.Message)

	res = f.Deposit(ctx, "pinnacle", "55", amount)
	assert.False(t, res.Success)
	assert.Equal(t, "Unsupported bookmaker: pinnacle", res.Message)

	res = f.Deposit(ctx, "Melbet", "55", amount)
	assert.False(t, res.Success)
	assert.Equal(t, "Melbet API configuration not found", res.Message)
	assert.EqualValues(t, 1, hits.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DepositAttemptsTotal.WithLabelValues(FamilyCashdesk, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DepositAttemptsTotal.WithLabelValues("unsupported", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DepositAttemptsTotal.WithLabelValues(FamilyCashdesk, "failure")))
}

func TestForwarderRecoversPanics(t *testing.T) {
	f := NewForwarder(panickingSource{}, testCasinoConfig(), nil, utils.NewNopLogger())

	res := f.Deposit(context.Background(), "1xbet", "55", decimal.NewFromInt(1))
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to deposit balance", res.Message)
}

func TestForwarderTransportError(t *testing.T) {
	cfg := testCasinoConfig()
	cfg.CashdeskURL = "http://127.0.0.1:1"
	resolver := NewResolver(&fakeStore{}, FallbacksFromConfig(cfg), utils.NewNopLogger())
	f := NewForwarder(resolver, cfg, nil, utils.NewNopLogger())

	res := f.Deposit(context.Background(), "1xbet", "55", decimal.NewFromInt(1))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "cashdesk request failed")
}
