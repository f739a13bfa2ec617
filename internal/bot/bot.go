package bot

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const updateTimeout = 60 * time.Second

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Decisions are the request operations available from the admin chat.
type Decisions interface {
	Approve(ctx context.Context, id uint, status string) (*models.Request, error)
	Defer(ctx context.Context, id uint) (*models.Request, error)
	PatchRequest(ctx context.Context, id uint, changes service.RequestChanges) (*models.Request, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter, page, limit int) (*service.RequestPage, error)
}

type Bot struct {
	API         Sender
	decisions   Decisions
	logger      *utils.Logger
	adminChatID int64

	adminStates map[int64]adminState
	stateMutex  *sync.Mutex
}

func NewBot(api Sender, decisions Decisions, adminChatID int64, logger *utils.Logger) *Bot {
	return &Bot{
		API:         api,
		decisions:   decisions,
		logger:      logger,
		adminChatID: adminChatID,
		adminStates: make(map[int64]adminState),
		stateMutex:  &sync.Mutex{},
	}
}

// Start handles updates until ctx is cancelled or the channel is closed.
func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.logger.Info("Starting bot...")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot stopped")
			return
		case update, open := <-updates:
			if !open {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	b.logger.Debugf("Received update: %d", update.UpdateID)
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}
