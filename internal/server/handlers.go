package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

func (s *Server) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.logger.Debugf("Bad request body on %s: %v", c.Request.URL.Path, err)
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// Auth

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var body loginBody
	if !s.bindJSON(c, &body) {
		return
	}

	res, err := s.svc.Login(c.Request.Context(), body.Username, body.Password, c.ClientIP())
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.setSessionCookie(c, res.Token, int(time.Until(res.ExpiresAt).Seconds()))
	ok(c, gin.H{
		"user":    gin.H{"id": res.Admin.ID, "username": res.Admin.Username},
		"message": "Login successful",
	})
}

func (s *Server) logout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	ok(c, gin.H{"message": "Logged out"})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, value, maxAge, "/", "", s.cfg.IsProduction(), true)
}

// External intake

func (s *Server) createPayment(c *gin.Context) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.svc.CreateFromExternal(c.Request.Context(), body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, res)
}

type paymentUpdateBody struct {
	ID           flexible `json:"id"`
	Status       string   `json:"status"`
	StatusDetail string   `json:"status_detail"`
}

func (s *Server) updatePayment(c *gin.Context) {
	var body paymentUpdateBody
	if !s.bindJSON(c, &body) {
		return
	}

	var id uint64
	if body.ID.present() {
		parsed, err := strconv.ParseUint(body.ID.String(), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid id")
			return
		}
		id = parsed
	}

	req, err := s.svc.UpdateFromExternal(c.Request.Context(), uint(id), body.Status, optional(body.StatusDetail))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, newRequestView(req))
}

func (s *Server) transactionHistory(c *gin.Context) {
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid user_id")
			return
		}
		userID = &id
	}

	requests, err := s.svc.TransactionHistory(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	entries := make([]historyEntry, 0, len(requests))
	for i := range requests {
		entries = append(entries, newHistoryEntry(&requests[i]))
	}
	ok(c, gin.H{"transactions": entries})
}

// Staff requests

func (s *Server) listRequests(c *gin.Context) {
	// out of range values come back as the int bounds and are clamped by the service
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageLimit)))

	result, err := s.svc.ListRequests(c.Request.Context(), repository.RequestFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ok(c, requestPageView{
		Requests: newRequestViews(result.Requests),
		Pagination: paginationView{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

type createRequestBody struct {
	UserID      flexible `json:"userId"`
	Username    string   `json:"username"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Bookmaker   string   `json:"bookmaker"`
	AccountID   flexible `json:"accountId"`
	Amount      flexible `json:"amount"`
	RequestType string   `json:"requestType"`
	Bank        string   `json:"bank"`
	Phone       string   `json:"phone"`
}

func (s *Server) createRequest(c *gin.Context) {
	var body createRequestBody
	if !s.bindJSON(c, &body) {
		return
	}
	if !body.UserID.present() || body.RequestType == "" || !body.Amount.present() {
		fail(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	userID, err := strconv.ParseInt(body.UserID.String(), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid userId format")
		return
	}
	amount, err := utils.ParseAmount(body.Amount.String())
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid amount format")
		return
	}

	req, err := s.svc.CreateRequest(c.Request.Context(), service.NewRequest{
		UserID:      userID,
		Username:    optional(body.Username),
		FirstName:   optional(body.FirstName),
		LastName:    optional(body.LastName),
		Bookmaker:   optional(body.Bookmaker),
		AccountID:   optional(body.AccountID.String()),
		Amount:      amount,
		RequestType: body.RequestType,
		Bank:        optional(body.Bank),
		Phone:       optional(body.Phone),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, newRequestView(req))
}

func (s *Server) getRequest(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	detail, err := s.svc.GetRequestDetail(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, newRequestDetailView(detail))
}

type patchRequestBody struct {
	Status       string          `json:"status"`
	StatusDetail string          `json:"statusDetail"`
	ProcessedAt  json.RawMessage `json:"processedAt"`
}

func (s *Server) patchRequest(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	var body patchRequestBody
	if !s.bindJSON(c, &body) {
		return
	}

	changes := service.RequestChanges{
		Status:       optional(strings.TrimSpace(body.Status)),
		StatusDetail: optional(body.StatusDetail),
	}
	switch raw := strings.TrimSpace(string(body.ProcessedAt)); raw {
	case "":
	case "null", `""`:
		changes.ClearProcessedAt = true
	default:
		var at time.Time
		if err := json.Unmarshal(body.ProcessedAt, &at); err != nil {
			fail(c, http.StatusBadRequest, "Invalid processedAt")
			return
		}
		changes.ProcessedAt = &at
	}

	req, err := s.svc.PatchRequest(c.Request.Context(), id, changes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.auditLog(c).Infof("Request %d patched, status %s", req.ID, req.Status)
	ok(c, newRequestView(req))
}

type depositBody struct {
	RequestID flexible `json:"requestId"`
	Bookmaker string   `json:"bookmaker"`
	AccountID flexible `json:"accountId"`
	Amount    flexible `json:"amount"`
}

func (s *Server) depositBalance(c *gin.Context) {
	var body depositBody
	if !s.bindJSON(c, &body) {
		return
	}

	in := service.DepositInput{Bookmaker: body.Bookmaker, AccountID: body.AccountID.String()}
	if body.RequestID.present() {
		id, err := strconv.ParseUint(body.RequestID.String(), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid requestId")
			return
		}
		in.RequestID = uint(id)
	}
	if body.Amount.present() {
		amount, err := utils.ParseAmount(body.Amount.String())
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid amount format")
			return
		}
		in.Amount = amount
	}

	outcome, err := s.svc.DepositBalance(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.auditLog(c).Infof("Balance deposited for request %d to %s", outcome.Request.ID, in.Bookmaker)
	ok(c, gin.H{
		"success": true,
		"message": outcome.Message,
		"request": newRequestView(outcome.Request),
	})
}

func (s *Server) getUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	detail, err := s.svc.GetUserDetail(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, newUserView(detail))
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Errorf("Health check failed: %v", err)
		fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	ok(c, gin.H{"status": "healthy", "timestamp": time.Now()})
}
