package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/Fi44er/payments_admin/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Команды:\n/pending - заявки, ожидающие решения\n\nНовые заявки приходят в этот чат автоматически."

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdminChat(chatID) {
		b.logger.Debugf("Ignoring message from non-admin chat %d", chatID)
		return
	}

	text := strings.TrimSpace(message.Text)
	b.logger.Infof("Processing admin message in chat %d: %s", chatID, text)

	if state := b.getState(chatID); state.name == stateAwaitingRejectReason && !message.IsCommand() {
		b.handleRejectReason(ctx, chatID, state.requestID, text)
		return
	}

	switch message.Command() {
	case "start", "help":
		b.sendMessage(chatID, helpText, nil)
	case "pending":
		b.setState(chatID, adminState{name: stateDefault})
		b.sendPendingPage(ctx, chatID, 0)
	default:
		b.sendMessage(chatID, "Неизвестная команда. "+helpText, nil)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || !b.isAdminChat(callback.Message.Chat.ID) {
		b.answerCallback(callback.ID, "Это действие доступно только администратору.")
		return
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	data := callback.Data

	if data == callbackCancel {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, "❌ Действие отменено.")
		if _, err := b.API.Send(edit); err != nil {
			b.logger.Warnf("Failed to edit message %d: %v", messageID, err)
		}
		b.answerCallback(callback.ID, "")
		return
	}

	if strings.HasPrefix(data, callbackPage) {
		page, err := strconv.Atoi(strings.TrimPrefix(data, callbackPage))
		if err != nil {
			b.logger.Errorf("Invalid page number in callback: %v", err)
			b.answerCallback(callback.ID, "Ошибка: неверные данные кнопки.")
			return
		}
		b.sendPendingPage(ctx, chatID, page)
		b.answerCallback(callback.ID, "")
		return
	}

	prefix, id, ok := parseRequestCallback(data)
	if !ok {
		b.logger.Errorf("Invalid callback data: %s", data)
		b.answerCallback(callback.ID, "Ошибка: неверные данные кнопки.")
		return
	}

	switch prefix {
	case callbackApprove:
		confirm := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Да, одобрить", fmt.Sprintf("%s%d", callbackFinalApprove, id)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", callbackCancel),
			),
		)
		text := fmt.Sprintf("Одобрить заявку #%d? Для пополнений деньги будут зачислены на счёт игрока.", id)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, confirm)
		if _, err := b.API.Send(edit); err != nil {
			b.logger.Warnf("Failed to edit message %d: %v", messageID, err)
		}
		b.answerCallback(callback.ID, "")

	case callbackFinalApprove:
		req, err := b.decisions.Approve(ctx, id, models.StatusApproved)
		b.finishDecision(callback, id, req, err)

	case callbackDefer:
		req, err := b.decisions.Defer(ctx, id)
		b.finishDecision(callback, id, req, err)

	case callbackReject:
		b.setState(chatID, adminState{name: stateAwaitingRejectReason, requestID: id})
		b.clearKeyboard(chatID, messageID)
		b.sendMessage(chatID, fmt.Sprintf("Укажите причину отклонения заявки #%d или отправьте «%s» без причины.", id, noReason), nil)
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) handleRejectReason(ctx context.Context, chatID int64, id uint, text string) {
	b.setState(chatID, adminState{name: stateDefault})

	rejected := models.StatusRejected
	changes := service.RequestChanges{Status: &rejected}
	if text != "" && text != noReason {
		changes.StatusDetail = &text
	}

	req, err := b.decisions.PatchRequest(ctx, id, changes)
	if err != nil {
		b.logger.Errorf("Failed to reject request %d from chat: %v", id, err)
		b.sendMessage(chatID, fmt.Sprintf("❌ Не удалось отклонить заявку #%d: %s", id, escape(userFacing(err))), nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("❌ Заявка #%d отклонена.\n\n%s", req.ID, requestCard(req)), nil)
}

// finishDecision reports the outcome of a decision button.
func (b *Bot) finishDecision(callback *tgbotapi.CallbackQuery, id uint, req *models.Request, err error) {
	chatID := callback.Message.Chat.ID
	if err != nil {
		b.logger.Errorf("Admin decision on request %d failed: %v", id, err)
		b.answerCallback(callback.ID, "❌ "+userFacing(err))
		b.sendMessage(chatID, fmt.Sprintf("❌ Заявка #%d: %s", id, escape(userFacing(err))), nil)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, requestCard(req))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.API.Send(edit); err != nil {
		b.logger.Warnf("Failed to update card of request %d: %v", id, err)
	}
	b.answerCallback(callback.ID, fmt.Sprintf("Заявка #%d: %s", id, req.Status))
}

func parseRequestCallback(data string) (string, uint, bool) {
	for _, prefix := range []string{callbackFinalApprove, callbackApprove, callbackReject, callbackDefer} {
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
		if err != nil || id == 0 {
			return "", 0, false
		}
		return prefix, uint(id), true
	}
	return "", 0, false
}

// userFacing hides internal errors from the chat.
func userFacing(err error) string {
	var (
		validation *service.ValidationError
		upstream   *service.UpstreamError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &upstream), errors.Is(err, service.ErrNotFound):
		return err.Error()
	}
	return "внутренняя ошибка, попробуйте позже"
}
