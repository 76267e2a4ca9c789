package telegram

import (
	"slices"
	"strings"

	"incluverse/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const setLanguagePrefix = "set_lang_"

// handleLanguageCommand sends a keyboard with every supported complaint language.
func (s *BotService) handleLanguageCommand(chatID int64) {
	tags := make([]models.Language, 0, len(models.Languages))
	for l := range models.Languages {
		tags = append(tags, l)
	}
	slices.Sort(tags)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tags))
	for _, l := range tags {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(models.Languages[l], setLanguagePrefix+string(l)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, s.text(chatID, "bot_choose_language"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := s.Sender.Send(msg); err != nil {
		log.WithError(err).Warn("failed to send language keyboard")
	}
}

func (s *BotService) handleCallbackQuery(q *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the "loading" state.
	if _, err := s.Sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.WithError(err).Debug("failed to answer callback query")
	}
	if q.Message == nil || !strings.HasPrefix(q.Data, setLanguagePrefix) {
		return
	}

	chatID := q.Message.Chat.ID
	lang, ok := models.ParseLanguage(strings.TrimPrefix(q.Data, setLanguagePrefix))
	if !ok {
		s.reply(chatID, s.text(chatID, "unknown_language"))
		return
	}
	s.setLanguage(chatID, lang)
	s.reply(chatID, s.text(chatID, "bot_language_changed"))
}
