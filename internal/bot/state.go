package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Admin chat states
const (
	stateDefault              = ""
	stateAwaitingRejectReason = "awaiting_reject_reason"
)

// noReason skips the rejection reason prompt.
const noReason = "-"

const markdownEscapedCharacters = "_*`["

type adminState struct {
	name      string
	requestID uint
}

// sendMessage - унифицированная функция для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) answerCallback(callbackID string, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.API.Request(callback); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

// clearKeyboard drops the inline buttons of an already handled card.
func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.API.Send(edit); err != nil {
		b.logger.Warnf("Failed to clear keyboard of message %d: %v", messageID, err)
	}
}

func (b *Bot) isAdminChat(chatID int64) bool {
	return b.adminChatID != 0 && chatID == b.adminChatID
}

func (b *Bot) setState(chatID int64, state adminState) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	if state.name == stateDefault {
		delete(b.adminStates, chatID)
	} else {
		b.adminStates[chatID] = state
	}
	b.logger.Debugf("Set state for chat %d: %s", chatID, state.name)
}

func (b *Bot) getState(chatID int64) adminState {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	return b.adminStates[chatID]
}

var markdownEscaper = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(markdownEscapedCharacters))
	for _, ch := range markdownEscapedCharacters {
		pairs = append(pairs, string(ch), `\`+string(ch))
	}
	return strings.NewReplacer(pairs...)
}()

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
