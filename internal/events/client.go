package events

import "incluverse/backend/internal/models"

// Client is the interface for any consumer of complaint events (e.g., WebSocket, Telegram).
// The hub manages different client types uniformly.
type Client interface {
	// GetID returns a unique identifier for the subscription.
	GetID() string

	// GetSendChannel returns the channel the hub delivers events on.
	// A full channel marks the client as slow and gets it dropped.
	GetSendChannel() chan<- models.ComplaintEvent

	// Run starts the client's pumps.
	Run()
	// Close shuts the client down. The hub calls it exactly once, after
	// the client has been removed.
	Close()
}
