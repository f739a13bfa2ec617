package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackApprove      = "admin_approve_request:"
	callbackFinalApprove = "admin_final_approve_request:"
	callbackReject       = "admin_reject_request:"
	callbackDefer        = "admin_defer_request:"
	callbackPage         = "admin_requests_page:"
	callbackCancel       = "admin_cancel_action"
)

func requestTypeTitle(t string) string {
	if t == models.RequestTypeWithdraw {
		return "Вывод"
	}
	return "Пополнение"
}

// requestCard renders a request for the admin chat.
func requestCard(req *models.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 Заявка #%d (%s)\n", req.ID, requestTypeTitle(req.RequestType))
	fmt.Fprintf(&sb, "👤 Пользователь: %s (`%d`)\n", escape(service.DisplayName(req)), req.UserID)
	if req.Bookmaker != nil && *req.Bookmaker != "" {
		fmt.Fprintf(&sb, "🎰 Букмекер: %s\n", escape(*req.Bookmaker))
	}
	if req.AccountID != nil && *req.AccountID != "" {
		fmt.Fprintf(&sb, "🎫 ID счёта: `%s`\n", *req.AccountID)
	}
	fmt.Fprintf(&sb, "💰 Сумма: `%s`\n", utils.FormatAmount(req.Amount))
	if req.Bank != nil && *req.Bank != "" {
		fmt.Fprintf(&sb, "🏦 Банк: %s\n", escape(*req.Bank))
	}
	if req.Phone != nil && *req.Phone != "" {
		fmt.Fprintf(&sb, "📱 Телефон: `%s`\n", *req.Phone)
	}
	fmt.Fprintf(&sb, "📌 Статус: %s", req.Status)
	return sb.String()
}

func decisionKeyboard(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("%s%d", callbackApprove, id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("%s%d", callbackReject, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏳ Отложить", fmt.Sprintf("%s%d", callbackDefer, id)),
		),
	)
}

// NotifyNewRequest posts the request card with decision buttons to the
// admin chat.
func (b *Bot) NotifyNewRequest(_ context.Context, req *models.Request) {
	if b.adminChatID == 0 {
		return
	}
	b.logger.Infof("NOTIFY: new request %d to admin chat %d", req.ID, b.adminChatID)
	b.sendMessage(b.adminChatID, "🆕 Новая заявка!\n\n"+requestCard(req), decisionKeyboard(req.ID))
}

// NotifyStatusChange tells the actor about a decision on their request.
// Intermediate statuses are not reported.
func (b *Bot) NotifyStatusChange(_ context.Context, req *models.Request) {
	text, ok := statusMessage(req)
	if !ok {
		return
	}
	b.logger.Infof("NOTIFY: request %d is %s, notifying user %d", req.ID, req.Status, req.UserID)
	b.sendMessage(req.UserID, text, nil)
}

func statusMessage(req *models.Request) (string, bool) {
	amount := utils.FormatAmount(req.Amount)
	var text string

	switch req.Status {
	case models.StatusCompleted:
		if req.RequestType == models.RequestTypeDeposit {
			text = fmt.Sprintf("✅ Ваш баланс пополнен на `%s`. Заявка #%d выполнена.", amount, req.ID)
		} else {
			text = fmt.Sprintf("✅ Вывод `%s` по заявке #%d выполнен.", amount, req.ID)
		}
	case models.StatusApproved:
		text = fmt.Sprintf("✅ Заявка #%d (%s, `%s`) одобрена.", req.ID, strings.ToLower(requestTypeTitle(req.RequestType)), amount)
	case models.StatusRejected:
		text = fmt.Sprintf("❌ Заявка #%d (%s, `%s`) отклонена.", req.ID, strings.ToLower(requestTypeTitle(req.RequestType)), amount)
	case models.StatusDeferred:
		text = fmt.Sprintf("⏳ Заявка #%d отложена. Мы свяжемся с вами.", req.ID)
	default:
		return "", false
	}

	if req.StatusDetail != nil && *req.StatusDetail != "" {
		text += "\n\nКомментарий: " + escape(*req.StatusDetail)
	}
	return text, true
}
