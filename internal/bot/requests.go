package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const requestsPerPage = 5

// sendPendingPage lists pending requests with one decision row per request.
// page is zero based.
func (b *Bot) sendPendingPage(ctx context.Context, chatID int64, page int) {
	if page < 0 {
		page = 0
	}
	result, err := b.decisions.ListRequests(ctx, repository.RequestFilter{Status: models.StatusPending}, page+1, requestsPerPage)
	if err != nil {
		b.logger.Errorf("Failed to get pending requests: %v", err)
		b.sendMessage(chatID, "❌ Не удалось получить список заявок. Попробуйте позже.", nil)
		return
	}
	if result.Total == 0 {
		b.sendMessage(chatID, "✅ Нет заявок, ожидающих решения.", nil)
		return
	}
	if len(result.Requests) == 0 && page > 0 {
		b.sendPendingPage(ctx, chatID, 0)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Заявки в ожидании (страница %d из %d, всего %d):\n\n", page+1, result.TotalPages, result.Total)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(result.Requests)+1)
	for i := range result.Requests {
		req := &result.Requests[i]
		fmt.Fprintf(&sb, "#%d %s · %s · `%s`\n", req.ID, requestTypeTitle(req.RequestType), escape(displayBookmaker(req)), utils.FormatAmount(req.Amount))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d", req.ID), fmt.Sprintf("%s%d", callbackApprove, req.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ #%d", req.ID), fmt.Sprintf("%s%d", callbackReject, req.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏳ #%d", req.ID), fmt.Sprintf("%s%d", callbackDefer, req.ID)),
		))
	}

	if result.TotalPages > 1 {
		pagination := make([]tgbotapi.InlineKeyboardButton, 0, 2)
		if page > 0 {
			pagination = append(pagination, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("%s%d", callbackPage, page-1)))
		}
		if page+1 < result.TotalPages {
			pagination = append(pagination, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", fmt.Sprintf("%s%d", callbackPage, page+1)))
		}
		if len(pagination) > 0 {
			rows = append(rows, pagination)
		}
	}

	b.sendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func displayBookmaker(req *models.Request) string {
	if req.Bookmaker == nil || *req.Bookmaker == "" {
		return "—"
	}
	return *req.Bookmaker
}
