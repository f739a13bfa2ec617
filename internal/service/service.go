package service

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/internal/casino"
	"github.com/Fi44er/payments_admin/internal/events"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/shopspring/decimal"
)

const backgroundTimeout = 10 * time.Second

type Repository interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id uint) (*models.Request, error)
	GetRequestDetail(ctx context.Context, id uint) (*models.Request, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter, page, limit int) ([]models.Request, int64, error)
	ListRelatedRequests(ctx context.Context, accountID string, bookmaker *string, limit int) ([]models.Request, error)
	GetLatestRequestByUser(ctx context.Context, userID int64) (*models.Request, error)
	ListRequestsByUser(ctx context.Context, userID int64) ([]models.Request, error)
	UpdateRequest(ctx context.Context, id uint, patch repository.RequestPatch) (*models.Request, error)
	TransitionRequest(ctx context.Context, id uint, from []string, patch repository.RequestPatch) (bool, error)

	GetBotUser(ctx context.Context, userID int64) (*models.BotUser, error)
	CountUserRelations(ctx context.Context, userID int64) (repository.UserCounts, error)
	GetUserNote(ctx context.Context, userID int64) (*string, error)

	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	CreateAdmin(ctx context.Context, admin *models.AdminUser) error
}

type Forwarder interface {
	Deposit(ctx context.Context, bookmaker, accountID string, amount decimal.Decimal) casino.Result
}

// Notifier delivers Telegram messages about requests.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, req *models.Request)
	NotifyNewRequest(ctx context.Context, req *models.Request)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.RequestEvent) error
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	repo      Repository
	forwarder Forwarder
	notifier  Notifier
	publisher EventPublisher
	limiter   Limiter
	metrics   *metrics.Metrics
	logger    *utils.Logger

	jwtSecret  []byte
	sessionTTL time.Duration

	now        func() time.Time
	background sync.WaitGroup
}

func NewService(repo Repository, forwarder Forwarder, cfg *config.Config, m *metrics.Metrics, logger *utils.Logger) *Service {
	return &Service{
		repo:       repo,
		forwarder:  forwarder,
		notifier:   nopNotifier{},
		publisher:  events.NopPublisher{},
		metrics:    m,
		logger:     logger,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetPublisher(p EventPublisher) {
	s.publisher = p
}

func (s *Service) SetLimiter(l Limiter) {
	s.limiter = l
}

// Wait blocks until pending notifications and events are delivered.
func (s *Service) Wait() {
	s.background.Wait()
}

// afterChange notifies the actor (or the admin chat for new requests) and
// publishes an event without blocking the caller.
func (s *Service) afterChange(kind string, req *models.Request) {
	snapshot := *req
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if kind == events.KindCreated {
			s.notifier.NotifyNewRequest(ctx, &snapshot)
		} else {
			s.notifier.NotifyStatusChange(ctx, &snapshot)
		}

		if err := s.publisher.Publish(ctx, events.NewRequestEvent(kind, &snapshot, s.now())); err != nil {
			s.logger.Warnf("Failed to publish %s for request %d: %v", kind, snapshot.ID, err)
		}
	}()
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatusChange(context.Context, *models.Request) {}

func (nopNotifier) NotifyNewRequest(context.Context, *models.Request) {}
