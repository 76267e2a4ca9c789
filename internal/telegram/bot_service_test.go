package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/connectivity"
	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"
	"incluverse/backend/internal/remote"
	"incluverse/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID int64 = 12345

// mockSender records every message instead of calling Telegram.
type mockSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests int
	fail     bool
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockSender) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (m *mockSender) last(t *testing.T) string {
	t.Helper()
	texts := m.texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func newTestBot(t *testing.T, online bool) (*BotService, *mockSender, *complaint.Service) {
	t.Helper()
	store, err := storage.Open(&config.Config{
		StorageDriver: "sqlite",
		SQLitePath:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)

	loc, err := localization.NewDefaultLocalizer()
	require.NoError(t, err)

	svc := complaint.NewService(store, remote.NewStub(0), connectivity.NewSignal(online), complaint.Options{Localizer: loc})
	_, err = svc.Load(context.Background())
	require.NoError(t, err)

	sender := &mockSender{}
	return NewBotServiceWithSender(sender, svc, loc), sender, svc
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: chatID},
		Chat: tgbotapi.Chat{ID: chatID},
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestBot_FilesGrievanceFromText(t *testing.T) {
	bot, sender, svc := newTestBot(t, true)

	bot.HandleUpdate(context.Background(), textUpdate("The station lift has been broken for a week"))

	recent := svc.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "The station lift has been broken for a week", recent[0].Text)
	assert.Equal(t, models.StatusSubmitted, recent[0].Status)

	reply := sender.last(t)
	assert.Contains(t, reply, "Complaint submitted successfully!")
	assert.Contains(t, reply, fmt.Sprintf("Grievance #%d filed", recent[0].ID))
}

func TestBot_OfflineGrievance(t *testing.T) {
	bot, sender, svc := newTestBot(t, false)

	bot.HandleUpdate(context.Background(), textUpdate("No braille on the ballot"))

	assert.Equal(t, models.StatusOffline, svc.Recent(1)[0].Status)
	assert.Contains(t, sender.last(t), "saved offline")
}

func TestBot_EmptyMessage(t *testing.T) {
	bot, sender, svc := newTestBot(t, true)

	bot.HandleUpdate(context.Background(), textUpdate("   "))

	assert.Len(t, svc.All(), 3)
	assert.Equal(t, "Please record your complaint first", sender.last(t))
}

func TestBot_StatusCommand(t *testing.T) {
	bot, sender, _ := newTestBot(t, true)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate("/status 1"))
	reply := sender.last(t)
	assert.True(t, strings.HasPrefix(reply, "#1 [resolved]"), reply)
	assert.Contains(t, reply, "Response: ")

	bot.HandleUpdate(ctx, textUpdate("/status 999"))
	assert.Equal(t, "Complaint not found", sender.last(t))

	bot.HandleUpdate(ctx, textUpdate("/status"))
	assert.Equal(t, "Usage: /status <id>", sender.last(t))
}

func TestBot_RecentCommand(t *testing.T) {
	bot, sender, _ := newTestBot(t, true)

	bot.HandleUpdate(context.Background(), textUpdate("/recent"))

	lines := strings.Split(sender.last(t), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#1 "))
}

func TestBot_RateCommand(t *testing.T) {
	bot, sender, svc := newTestBot(t, true)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate("/rate 1 2"))
	assert.Equal(t, "Thank you for rating this response", sender.last(t))
	c, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2, *c.Rating)

	bot.HandleUpdate(ctx, textUpdate("/rate 1 9"))
	assert.Equal(t, "Rating must be between 1 and 5", sender.last(t))

	bot.HandleUpdate(ctx, textUpdate("/rate 3 4"))
	assert.Equal(t, "Only resolved complaints can be rated", sender.last(t))

	bot.HandleUpdate(ctx, textUpdate("/rate one"))
	assert.Equal(t, "Usage: /rate <id> <1-5>", sender.last(t))
}

func TestBot_LanguageSelection(t *testing.T) {
	bot, sender, svc := newTestBot(t, true)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate("/language"))
	sender.mu.Lock()
	keyboard, ok := sender.sent[len(sender.sent)-1].(tgbotapi.MessageConfig)
	sender.mu.Unlock()
	require.True(t, ok)
	markup, ok := keyboard.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, markup.InlineKeyboard, len(models.Languages))

	bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "set_lang_hi-IN",
		Message: &tgbotapi.Message{Chat: tgbotapi.Chat{ID: chatID}},
	}})
	assert.Equal(t, 1, sender.requests)

	loc, _ := localization.NewDefaultLocalizer()
	assert.Equal(t, loc.GetString("hi", "bot_language_changed"), sender.last(t))

	bot.HandleUpdate(ctx, textUpdate("बस स्टॉप पर रैंप नहीं है"))
	assert.Equal(t, models.LanguageHindi, svc.Recent(1)[0].Language)

	bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-2",
		Data:    "set_lang_fr-FR",
		Message: &tgbotapi.Message{Chat: tgbotapi.Chat{ID: chatID}},
	}})
	assert.Equal(t, models.LanguageHindi, bot.language(chatID))
}

func TestNotifier_Format(t *testing.T) {
	loc, err := localization.NewDefaultLocalizer()
	require.NoError(t, err)
	n := NewNotifier(&mockSender{}, -100, loc, "en")

	rating := 4
	c := models.Complaint{
		ID:       7,
		Text:     "Ramp too steep",
		Language: models.LanguageTamil,
		Priority: models.PriorityHigh,
		Status:   models.StatusResolved,
		Response: "Fixed",
		Rating:   &rating,
	}

	assert.Equal(t, []string{"New grievance #7 (தமிழ் (Tamil), high priority):\nRamp too steep"},
		n.Format(models.ComplaintEvent{Type: models.EventSubmitted, Complaints: []models.Complaint{c}}))
	assert.Equal(t, []string{"Grievance #7 answered:\nFixed"},
		n.Format(models.ComplaintEvent{Type: models.EventResponded, Complaints: []models.Complaint{c}}))
	assert.Equal(t, []string{"Grievance #7 is now resolved"},
		n.Format(models.ComplaintEvent{Type: models.EventStatus, Complaints: []models.Complaint{c}}))
	assert.Equal(t, []string{"Grievance #7 rated 4/5"},
		n.Format(models.ComplaintEvent{Type: models.EventRated, Complaints: []models.Complaint{c}}))
	assert.Equal(t, []string{"2 grievances synced from offline devices"},
		n.Format(models.ComplaintEvent{Type: models.EventSynced, Complaints: []models.Complaint{c, c}}))
	assert.Empty(t, n.Format(models.ComplaintEvent{Type: models.EventSynced}))
}

func TestNotifier_PumpSendsAndStops(t *testing.T) {
	loc, err := localization.NewDefaultLocalizer()
	require.NoError(t, err)
	sender := &mockSender{}
	n := NewNotifier(sender, -100, loc, "en")
	assert.Equal(t, "telegram:-100", n.GetID())

	n.Run()
	n.GetSendChannel() <- models.ComplaintEvent{
		Type:       models.EventStatus,
		Complaints: []models.Complaint{{ID: 3, Status: models.StatusInProgress}},
	}
	n.Close()
	n.Close()

	select {
	case <-n.Done():
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}
	assert.Equal(t, []string{"Grievance #3 is now in-progress"}, sender.texts())
}
