package server

import (
	"errors"
	"net/http"

	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Success: false, Error: message})
}

// writeError maps service errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		upstream   *service.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		fail(c, http.StatusBadRequest, validation.Message)
	case service.IsAuthError(err):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		fail(c, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &upstream):
		fail(c, http.StatusInternalServerError, upstream.Message)
	default:
		s.logger.WithField("path", c.Request.URL.Path).Errorf("Request failed: %v", err)
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
