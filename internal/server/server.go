package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      *config.Config
	svc      *service.Service
	pinger   Pinger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *utils.Logger

	router     *gin.Engine
	httpServer *http.Server
}

func New(cfg *config.Config, svc *service.Service, pinger Pinger, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *utils.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		pinger:   pinger,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
		router:   gin.New(),
	}
	s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := s.router
	r.Use(s.requestID(), s.requestLogger(), s.recovery(), s.authGate())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/login", s.login)
		auth.POST("/logout", s.logout)

		api.POST("/payment", s.createPayment)
		api.PUT("/payment", s.updatePayment)
		api.GET("/transaction-history", s.transactionHistory)

		requests := api.Group("/requests")
		requests.GET("", s.listRequests)
		requests.POST("", s.createRequest)
		requests.GET("/:id", s.getRequest)
		requests.PATCH("/:id", s.patchRequest)

		api.POST("/deposit-balance", s.depositBalance)
		api.GET("/users/:userId", s.getUser)
	}

	if dir := s.cfg.DashboardDir; dir != "" {
		r.Static("/dashboard", dir)
		r.StaticFile("/login", filepath.Join(dir, "login.html"))
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/dashboard/")
		})
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not found")
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("🚀 HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, failed := <-errCh:
		if failed {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received, shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("Server exited gracefully")
	return nil
}
