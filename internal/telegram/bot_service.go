// Package telegram handles the integration with the Telegram Bot API.
// Citizens can file and follow grievances from a chat, and responders get
// a notification feed of lifecycle events.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// BotService receives Telegram updates and turns them into engine calls.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Sender    Sender
	Service   *complaint.Service
	Localizer *localization.Localizer

	mu        sync.Mutex
	languages map[int64]models.Language
}

// NewBotService authorizes the bot token.
func NewBotService(token string, svc *complaint.Service, loc *localization.Localizer) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = false
	log.Infof("authorized on telegram account %s", bot.Self.UserName)

	s := NewBotServiceWithSender(bot, svc, loc)
	s.BotAPI = bot
	return s, nil
}

// NewBotServiceWithSender builds a service that only sends; updates are fed
// through HandleUpdate.
func NewBotServiceWithSender(sender Sender, svc *complaint.Service, loc *localization.Localizer) *BotService {
	return &BotService{
		Sender:    sender,
		Service:   svc,
		Localizer: loc,
		languages: make(map[int64]models.Language),
	}
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run(ctx context.Context) error {
	if s.BotAPI == nil {
		return errors.New("telegram bot is not authorized")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches a single update.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallbackQuery(update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.IsCommand() {
			s.handleCommand(ctx, msg)
			return
		}
		s.handleGrievance(ctx, msg)
	}
}

func (s *BotService) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		s.reply(chatID, s.text(chatID, "bot_welcome"))
	case "language":
		s.handleLanguageCommand(chatID)
	case "status":
		s.handleStatusCommand(chatID, args)
	case "recent":
		s.handleRecentCommand(chatID)
	case "rate":
		s.handleRateCommand(ctx, chatID, args)
	default:
		s.reply(chatID, s.text(chatID, "bot_welcome"))
	}
}

// extractMessageContent uniformly extracts text or a caption from a message.
func extractMessageContent(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func (s *BotService) handleGrievance(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	c, err := s.Service.Submit(ctx, extractMessageContent(msg), s.language(chatID))
	if err != nil {
		s.replyError(chatID, err)
		return
	}
	log.WithFields(log.Fields{"complaint": c.ID, "status": c.Status}).Info("grievance filed from telegram")

	key := "complaint_submitted"
	if c.Status == models.StatusOffline {
		key = "complaint_saved_offline"
	}
	s.reply(chatID, s.text(chatID, key)+"\n"+s.text(chatID, "bot_filed", c.ID, c.Status))
}

func (s *BotService) handleStatusCommand(chatID int64, args []string) {
	id, ok := parseID(args)
	if !ok {
		s.reply(chatID, s.text(chatID, "bot_status_usage"))
		return
	}
	c, err := s.Service.Get(id)
	if err != nil {
		s.replyError(chatID, err)
		return
	}
	s.reply(chatID, s.describe(chatID, c))
}

func (s *BotService) handleRecentCommand(chatID int64) {
	recent := s.Service.Recent(config.RecentActivityCount)
	if len(recent) == 0 {
		s.reply(chatID, s.text(chatID, "bot_no_complaints"))
		return
	}
	lines := make([]string, 0, len(recent))
	for _, c := range recent {
		lines = append(lines, s.text(chatID, "bot_status_line", c.ID, c.Status, c.Text))
	}
	s.reply(chatID, strings.Join(lines, "\n"))
}

func (s *BotService) handleRateCommand(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		s.reply(chatID, s.text(chatID, "bot_rate_usage"))
		return
	}
	id, ok := parseID(args[:1])
	rating, err := strconv.Atoi(args[1])
	if !ok || err != nil {
		s.reply(chatID, s.text(chatID, "bot_rate_usage"))
		return
	}
	if _, err := s.Service.Rate(ctx, id, rating); err != nil {
		s.replyError(chatID, err)
		return
	}
	s.reply(chatID, s.text(chatID, "rating_saved"))
}

func (s *BotService) describe(chatID int64, c models.Complaint) string {
	text := s.text(chatID, "bot_status_line", c.ID, c.Status, c.Text)
	if c.HasResponse() {
		text += "\n" + s.text(chatID, "bot_response_line", c.Response)
	}
	return text
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	return id, err == nil && id > 0
}

func (s *BotService) language(chatID int64) models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.languages[chatID]; ok {
		return l
	}
	return models.LanguageEnglish
}

func (s *BotService) setLanguage(chatID int64, l models.Language) {
	s.mu.Lock()
	s.languages[chatID] = l
	s.mu.Unlock()
}

func (s *BotService) text(chatID int64, key string, args ...any) string {
	t := s.Localizer.GetString(s.language(chatID).Code(), key)
	if len(args) == 0 {
		return t
	}
	return fmt.Sprintf(t, args...)
}

func (s *BotService) replyError(chatID int64, err error) {
	key := "invalid_request"
	switch {
	case errors.Is(err, complaint.ErrEmptyText):
		key = "record_first"
	case errors.Is(err, complaint.ErrRatingRange):
		key = "rating_invalid"
	case errors.Is(err, complaint.ErrNotResolved):
		key = "rating_not_resolved"
	case errors.Is(err, complaint.ErrNotFound):
		key = "not_found"
	case errors.Is(err, complaint.ErrPersistence):
		key = "storage_unavailable"
		log.WithError(err).Warn("telegram request failed")
	}
	s.reply(chatID, s.text(chatID, key))
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.Sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat", chatID).Warn("failed to send telegram reply")
	}
}
