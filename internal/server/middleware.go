package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	authCookie      = "auth_token"
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxAdmin     = "admin"
)

// Paths reachable without a session. The /api ones are called by the bot and
// the mini-app from other origins and get CORS headers.
var (
	publicAPIPrefixes = []string{"/api/auth", "/api/payment", "/api/transaction-history", "/api/public"}
	publicPrefixes    = []string{"/metrics", "/healthz", "/login"}
)

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		s.metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), latency)

		entry := s.logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    latency,
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(ctxRequestID),
		})
		if admin := c.GetString(ctxAdmin); admin != "" {
			entry = entry.WithField("admin", admin)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Debug("HTTP request")
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.WithField("request_id", c.GetString(ctxRequestID)).Errorf("Panic while serving %s: %v", c.Request.URL.Path, recovered)
		fail(c, http.StatusInternalServerError, "Internal server error")
	})
}

func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Credentials", "true")
}

// authGate lets public paths through and requires a session token
// everywhere else.
func (s *Server) authGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if hasPrefix(path, publicAPIPrefixes) {
			setCORSHeaders(c)
			if c.Request.Method == http.MethodOptions {
				c.Header("Access-Control-Max-Age", "86400")
				c.AbortWithStatus(http.StatusOK)
				return
			}
			c.Next()
			return
		}
		if hasPrefix(path, publicPrefixes) {
			c.Next()
			return
		}

		claims, err := s.svc.VerifyToken(sessionToken(c))
		if err == nil {
			c.Set(ctxAdmin, claims.Username)
			c.Next()
			return
		}

		if path == "/" || strings.HasPrefix(path, "/dashboard") {
			target := "/login?redirected=true&from=" + url.QueryEscape(path)
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		fail(c, http.StatusUnauthorized, "Unauthorized")
	}
}

// sessionToken reads the auth cookie, falling back to a Bearer header.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(authCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}

// auditLog tags decisions with the signed-in admin.
func (s *Server) auditLog(c *gin.Context) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"admin":      c.GetString(ctxAdmin),
		"request_id": c.GetString(ctxRequestID),
	})
}
