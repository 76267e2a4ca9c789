package telegram

import (
	"fmt"
	"strconv"
	"sync"

	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const notifierBuffer = 128

// Sender is the subset of *tgbotapi.BotAPI used to talk to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier implements events.Client. It forwards lifecycle events to the
// responders' Telegram chat.
type Notifier struct {
	ChatID    int64
	Sender    Sender
	Localizer *localization.Localizer
	Language  string
	Send      chan models.ComplaintEvent

	closeOnce sync.Once
	done      chan struct{}
}

// NewNotifier creates a notifier that writes to chatID in lang.
func NewNotifier(sender Sender, chatID int64, loc *localization.Localizer, lang string) *Notifier {
	return &Notifier{
		ChatID:    chatID,
		Sender:    sender,
		Localizer: loc,
		Language:  lang,
		Send:      make(chan models.ComplaintEvent, notifierBuffer),
		done:      make(chan struct{}),
	}
}

func (n *Notifier) GetID() string                                { return "telegram:" + strconv.FormatInt(n.ChatID, 10) }
func (n *Notifier) GetSendChannel() chan<- models.ComplaintEvent { return n.Send }

// Run starts the write pump.
func (n *Notifier) Run() {
	go n.writePump()
}

// Close closes Send; the pump drains what is queued and stops.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.Send) })
}

// Done is closed once the pump has stopped.
func (n *Notifier) Done() <-chan struct{} { return n.done }

func (n *Notifier) writePump() {
	defer close(n.done)
	for event := range n.Send {
		for _, text := range n.Format(event) {
			if _, err := n.Sender.Send(tgbotapi.NewMessage(n.ChatID, text)); err != nil {
				log.WithError(err).WithField("event", event.Type).Warn("telegram notification failed")
			}
		}
	}
	log.WithField("chat", n.ChatID).Debug("telegram notifier stopped")
}

// Format renders an event as one or more chat messages.
func (n *Notifier) Format(event models.ComplaintEvent) []string {
	t := func(key string, args ...any) string {
		return fmt.Sprintf(n.Localizer.GetString(n.Language, key), args...)
	}

	if event.Type == models.EventSynced {
		if len(event.Complaints) == 0 {
			return nil
		}
		return []string{t("notify_synced", len(event.Complaints))}
	}

	out := make([]string, 0, len(event.Complaints))
	for _, c := range event.Complaints {
		switch event.Type {
		case models.EventSubmitted:
			out = append(out, t("notify_submitted", c.ID, models.Languages[c.Language], c.Priority, c.Text))
		case models.EventResponded:
			out = append(out, t("notify_responded", c.ID, c.Response))
		case models.EventStatus:
			out = append(out, t("notify_status", c.ID, c.Status))
		case models.EventRated:
			if c.Rating != nil {
				out = append(out, t("notify_rated", c.ID, *c.Rating))
			}
		}
	}
	return out
}
