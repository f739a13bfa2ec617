package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/casino"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/internal/testutil"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForwarder struct {
	result casino.Result
	calls  int
}

func (f *stubForwarder) Deposit(context.Context, string, string, decimal.Decimal) casino.Result {
	f.calls++
	return f.result
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	srv       *Server
	svc       *service.Service
	forwarder *stubForwarder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewNopLogger()
	repo := repository.NewRepository(testutil.NewDB(t), logger)
	cfg := &config.Config{Env: "test", JWTSecret: "test-secret", SessionTTL: time.Hour}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	forwarder := &stubForwarder{result: casino.Result{Success: true, Message: "Deposited"}}
	svc := service.NewService(repo, forwarder, cfg, m, logger)
	t.Cleanup(svc.Wait)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "s3cret"))

	return &testServer{srv: New(cfg, svc, repo, m, reg, logger), svc: svc, forwarder: forwarder}
}

func (ts *testServer) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// authed performs the request with a fresh session token.
func (ts *testServer) authed(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	res, err := ts.svc.Login(context.Background(), "admin", "s3cret", "127.0.0.1")
	require.NoError(t, err)
	return ts.do(t, method, path, body, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+res.Token)
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func (ts *testServer) seed(t *testing.T, typ, bookmaker, accountID, amount string) *models.Request {
	t.Helper()
	req, err := ts.svc.CreateRequest(context.Background(), service.NewRequest{
		UserID:      111,
		Username:    testutil.Ptr("neo"),
		Bookmaker:   testutil.Ptr(bookmaker),
		AccountID:   testutil.Ptr(accountID),
		Amount:      decimal.RequireFromString(amount),
		RequestType: typ,
	})
	require.NoError(t, err)
	return req
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec, nil).Success)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",method="GET",route="/healthz"} 1`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", func(r *http.Request) {
		r.Header.Set(requestIDHeader, "abc-123")
	})
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/requests", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode(t, rec, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Unauthorized", resp.Error)

	rec = ts.do(t, http.MethodGet, "/api/requests", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/dashboard/requests", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirected=true&from=%2Fdashboard%2Frequests", rec.Header().Get("Location"))

	rec = ts.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestPublicPreflight(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodOptions, "/api/payment", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec, nil).Error)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required", decode(t, rec, nil).Error)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Message string `json:"message"`
	}
	decode(t, rec, &data)
	assert.Equal(t, "admin", data.User.Username)
	assert.Equal(t, "Login successful", data.Message)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	assert.Equal(t, authCookie, session.Name)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.False(t, session.Secure)

	rec = ts.do(t, http.MethodGet, "/api/requests", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: authCookie, Value: session.Value})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestPaymentIntakeIsListed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/payment", `{"telegram_user_id":111,"playerId":"555","type":"deposit","amount":"100.50","bookmaker":"1xbet","telegram_username":"neo"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var created service.IntakeResult
	decode(t, rec, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.ID, created.TransactionID)

	rec = ts.do(t, http.MethodPost, "/api/payment", `{"type":"deposit","amount":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: userId, type, amount", decode(t, rec, nil).Error)

	rec = ts.do(t, http.MethodPost, "/api/payment", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.authed(t, http.MethodGet, "/api/requests?status=pending&type=deposit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Requests   []map[string]interface{} `json:"requests"`
		Pagination paginationView           `json:"pagination"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Requests, 1)
	assert.Equal(t, "100.50", page.Requests[0]["amount"])
	assert.Equal(t, "111", page.Requests[0]["userId"])
	assert.Equal(t, "555", page.Requests[0]["accountId"])
	assert.Equal(t, paginationView{Page: 1, Limit: 50, Total: 1, TotalPages: 1}, page.Pagination)

	rec = ts.authed(t, http.MethodGet, "/api/requests?status=left", "")
	decode(t, rec, &page)
	assert.Empty(t, page.Requests)
}

func TestPaymentUpdate(t *testing.T) {
	ts := newTestServer(t)
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")

	rec := ts.do(t, http.MethodPut, "/api/payment", `{"id":"`+jsonID(req.ID)+`","status":"completed","status_detail":"auto"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]interface{}
	decode(t, rec, &view)
	assert.Equal(t, "completed", view["status"])
	assert.Equal(t, "auto", view["statusDetail"])
	assert.NotNil(t, view["processedAt"])

	rec = ts.do(t, http.MethodPut, "/api/payment", `{"status":"completed"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: id, status", decode(t, rec, nil).Error)

	rec = ts.do(t, http.MethodPut, "/api/payment", `{"id":9999,"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "100.50")
	ts.seed(t, models.RequestTypeWithdraw, "1xbet", "55", "20")

	rec := ts.do(t, http.MethodGet, "/api/transaction-history?user_id=111&type=deposit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Transactions []historyEntry `json:"transactions"`
	}
	decode(t, rec, &data)
	require.Len(t, data.Transactions, 1)
	entry := data.Transactions[0]
	assert.Equal(t, "@neo", entry.UserDisplayName)
	assert.Equal(t, "100.50", entry.Amount)
	assert.Contains(t, rec.Body.String(), `"amount":"100.50"`)
	assert.Equal(t, "111", entry.UserID)
	assert.Equal(t, "55", entry.AccountID)
	assert.Equal(t, "", entry.Bank)

	rec = ts.do(t, http.MethodGet, "/api/transaction-history?user_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchRequestRunsLifecycle(t *testing.T) {
	ts := newTestServer(t)
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")
	path := "/api/requests/" + jsonID(req.ID)

	rec := ts.authed(t, http.MethodPatch, path, `{"status":"approved","statusDetail":"checked"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]interface{}
	decode(t, rec, &view)
	assert.Equal(t, "completed", view["status"])
	assert.Equal(t, "checked", view["statusDetail"])

	rec = ts.authed(t, http.MethodPatch, path, `{"status":"rejected"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request already processed", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPatch, path, `{"processedAt":null}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "processedAt cannot be cleared on a decided request", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPatch, path, `{"processedAt":"2025-05-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stamped struct {
		ProcessedAt time.Time `json:"processedAt"`
	}
	decode(t, rec, &stamped)
	assert.True(t, stamped.ProcessedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))

	rec = ts.authed(t, http.MethodPatch, "/api/requests/9999", `{"status":"rejected"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Request not found", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPatch, "/api/requests/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchRequestSurfacesUpstreamFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.forwarder.result = casino.Result{Success: false, Message: "Player not found"}
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")

	rec := ts.authed(t, http.MethodPatch, "/api/requests/"+jsonID(req.ID), `{"status":"approved"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Player not found", decode(t, rec, nil).Error)
}

func TestDepositBalance(t *testing.T) {
	ts := newTestServer(t)
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")

	rec := ts.authed(t, http.MethodPost, "/api/deposit-balance", `{"requestId":`+jsonID(req.ID)+`,"bookmaker":"melbet"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: requestId, bookmaker, accountId, amount", decode(t, rec, nil).Error)

	body := `{"requestId":"` + jsonID(req.ID) + `","bookmaker":"melbet","accountId":77,"amount":"12.5"}`
	rec = ts.authed(t, http.MethodPost, "/api/deposit-balance", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Request map[string]interface{} `json:"request"`
	}
	decode(t, rec, &data)
	assert.True(t, data.Success)
	assert.Equal(t, "Deposited", data.Message)
	assert.Equal(t, "completed", data.Request["status"])
}

func TestRequestDetailAndUser(t *testing.T) {
	ts := newTestServer(t)
	first := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")
	ts.seed(t, models.RequestTypeWithdraw, "1xbet", "55", "20")
	ts.seed(t, models.RequestTypeDeposit, "melbet", "55", "30")

	rec := ts.authed(t, http.MethodGet, "/api/requests/"+jsonID(first.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		ID                 uint                    `json:"id"`
		Amount             string                  `json:"amount"`
		UserNote           *string                 `json:"userNote"`
		IncomingPayments   []incomingPaymentView   `json:"incomingPayments"`
		CasinoTransactions []casinoTransactionView `json:"casinoTransactions"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, first.ID, detail.ID)
	assert.Equal(t, "10.00", detail.Amount)
	assert.Nil(t, detail.UserNote)
	assert.NotNil(t, detail.IncomingPayments)
	assert.Len(t, detail.CasinoTransactions, 2)

	rec = ts.authed(t, http.MethodGet, "/api/users/111", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user userView
	decode(t, rec, &user)
	assert.True(t, user.Synthesized)
	assert.Equal(t, "111", user.UserID)
	assert.Equal(t, "ru", user.Language)
	assert.EqualValues(t, 3, user.Count.Transactions)
	assert.Len(t, user.Transactions, 3)

	rec = ts.authed(t, http.MethodGet, "/api/users/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec, nil).Error)
}

func TestCreateRequestByStaff(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.authed(t, http.MethodPost, "/api/requests", `{"userId":"42","requestType":"withdraw","amount":15,"bank":"mbank"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]interface{}
	decode(t, rec, &view)
	assert.Equal(t, "pending", view["status"])
	assert.Equal(t, "15.00", view["amount"])
	assert.Equal(t, "mbank", view["bank"])

	rec = ts.authed(t, http.MethodPost, "/api/requests", `{"userId":42,"requestType":"withdraw"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPost, "/api/requests", `{"userId":42,"requestType":"bonus","amount":"5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request type: bonus", decode(t, rec, nil).Error)
}

func TestPanicsBecomeEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.router.GET("/api/public/boom", func(*gin.Context) {
		panic("boom")
	})

	rec := ts.do(t, http.MethodGet, "/api/public/boom", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec, nil).Error)
}

func TestFlexibleField(t *testing.T) {
	var body struct {
		A flexible `json:"a"`
		B flexible `json:"b"`
		C flexible `json:"c"`
		D flexible `json:"d"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewBufferString(`{"a":"  12 ","b":7.5,"c":0,"d":null}`)).Decode(&body))
	assert.Equal(t, "12", body.A.String())
	assert.Equal(t, "7.5", body.B.String())
	assert.False(t, body.C.present())
	assert.False(t, body.D.present())

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &body))
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestCompletedRequestCannotBeReopened(t *testing.T) {
	ts := newTestServer(t)
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")
	path := "/api/requests/" + jsonID(req.ID)

	rec := ts.authed(t, http.MethodPatch, path, `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.authed(t, http.MethodPatch, path, `{"status":"pending"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request already processed", decode(t, rec, nil).Error)

	rec = ts.do(t, http.MethodPut, "/api/payment", `{"id":"`+jsonID(req.ID)+`","status":"pending"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request already processed", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPatch, path, `{"status":"approved"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, ts.forwarder.calls)

	rec = ts.authed(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]interface{}
	decode(t, rec, &view)
	assert.Equal(t, "completed", view["status"])
	assert.NotNil(t, view["processedAt"])
}

func TestPaymentUpdateRefusesProcessing(t *testing.T) {
	ts := newTestServer(t)
	req := ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")

	rec := ts.do(t, http.MethodPut, "/api/payment", `{"id":"`+jsonID(req.ID)+`","status":"processing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid status transition", decode(t, rec, nil).Error)

	rec = ts.authed(t, http.MethodPatch, "/api/requests/"+jsonID(req.ID), `{"status":"processing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid status transition", decode(t, rec, nil).Error)
}

func TestListRequestsClampsHugePage(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, models.RequestTypeDeposit, "1xbet", "55", "10")

	rec := ts.authed(t, http.MethodGet, "/api/requests?page=99999999999999999999&limit=100000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Requests   []map[string]interface{} `json:"requests"`
		Pagination paginationView           `json:"pagination"`
	}
	decode(t, rec, &page)
	assert.Empty(t, page.Requests)
	assert.Equal(t, service.MaxPage, page.Pagination.Page)
	assert.Equal(t, service.MaxPageLimit, page.Pagination.Limit)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func TestDecisionsAreLoggedWithAdmin(t *testing.T) {
	ts := newTestServer(t)
	hook := logtest.NewLocal(ts.srv.logger.Logger)
	req := ts.seed(t, models.RequestTypeWithdraw, "1xbet", "55", "10")

	rec := ts.authed(t, http.MethodPatch, "/api/requests/"+jsonID(req.ID), `{"status":"rejected"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var audit *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if strings.HasPrefix(entry.Message, "Request "+jsonID(req.ID)+" patched") {
			audit = entry
		}
	}
	require.NotNil(t, audit)
	assert.Equal(t, "admin", audit.Data["admin"])
	assert.NotEmpty(t, audit.Data["request_id"])
}
