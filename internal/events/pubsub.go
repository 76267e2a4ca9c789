package events

import (
	"context"
	"encoding/json"
	"time"

	"incluverse/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const relayPublishTimeout = 2 * time.Second

type envelope struct {
	Origin string                `json:"origin"`
	Event  models.ComplaintEvent `json:"event"`
}

// Relay shares events between server instances over a Redis channel. Local
// events go to the local hub directly; events from other instances arrive
// through Listen. Messages from this instance are ignored on the way back.
type Relay struct {
	Redis   *redis.Client
	Channel string
	Origin  string
	Hub     *Hub
}

// NewRelay creates a relay with a fresh origin id.
func NewRelay(rdb *redis.Client, channel string, hub *Hub) *Relay {
	return &Relay{Redis: rdb, Channel: channel, Origin: uuid.NewString(), Hub: hub}
}

// Publish delivers the event locally and forwards it to the other instances.
func (r *Relay) Publish(event models.ComplaintEvent) {
	r.Hub.Publish(event)

	payload, err := json.Marshal(envelope{Origin: r.Origin, Event: event})
	if err != nil {
		log.WithError(err).Error("failed to encode relayed event")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		defer cancel()
		if err := r.Redis.Publish(ctx, r.Channel, payload).Err(); err != nil {
			log.WithError(err).WithField("channel", r.Channel).Warn("failed to relay event")
		}
	}()
}

// Listen forwards events published by other instances to the local hub until ctx is done.
func (r *Relay) Listen(ctx context.Context) error {
	sub := r.Redis.Subscribe(ctx, r.Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.WithError(err).Warn("discarding malformed relayed event")
		return
	}
	if env.Origin == r.Origin {
		return
	}
	r.Hub.Publish(env.Event)
}
