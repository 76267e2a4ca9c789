// Package events fans committed complaint lifecycle events out to live
// subscribers: websocket dashboards, the Telegram notifier and, optionally,
// other server instances over Redis pub/sub.
package events

import (
	"context"
	"sync"

	"incluverse/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

const broadcastBuffer = 64

// Hub keeps the set of connected clients and broadcasts events to them.
// Only the Run goroutine touches the client map.
type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client

	broadcastCh chan models.ComplaintEvent
	clients     map[string]Client
	done        chan struct{}
	stopOnce    sync.Once

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub() *Hub {
	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.ComplaintEvent, broadcastBuffer),
		clients:      make(map[string]Client),
		done:         make(chan struct{}),
	}
}

// Publish queues an event for broadcast. It never blocks: when the queue is
// full the event is dropped and logged.
func (h *Hub) Publish(event models.ComplaintEvent) {
	select {
	case h.broadcastCh <- event:
	case <-h.done:
	default:
		log.WithField("type", event.Type).Warn("event queue full, dropping event")
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client if it is still registered.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.RegisterCh:
			if old, ok := h.clients[c.GetID()]; ok && old != c {
				old.Close()
			}
			h.clients[c.GetID()] = c
			h.setCount()
			log.WithField("client", c.GetID()).Debug("event client registered")

		case c := <-h.UnregisterCh:
			h.remove(c)

		case event := <-h.broadcastCh:
			for _, c := range h.clients {
				select {
				case c.GetSendChannel() <- event:
				default:
					log.WithField("client", c.GetID()).Warn("event client too slow, dropping")
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c Client) {
	current, ok := h.clients[c.GetID()]
	if !ok || current != c {
		return
	}
	delete(h.clients, c.GetID())
	h.setCount()
	c.Close()
	log.WithField("client", c.GetID()).Debug("event client unregistered")
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		for id, c := range h.clients {
			delete(h.clients, id)
			c.Close()
		}
		h.setCount()
	})
}
