package events

import (
	"sync"
	"time"

	"incluverse/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// WebSocketClient implements Client for a dashboard connected over a websocket.
// The feed is one-way; anything the peer sends is discarded. Every subscriber
// gets the same events: they carry nothing GET /complaints does not return.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.ComplaintEvent

	closeOnce sync.Once
}

// NewWebSocketClient wraps an upgraded connection.
func NewWebSocketClient(hub *Hub, conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		ID:   uuid.NewString(),
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.ComplaintEvent, sendBuffer),
	}
}

func (c *WebSocketClient) GetID() string                                { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run starts the pumps for the websocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and closes the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.ID).Warn("websocket read failed")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				log.WithError(err).WithField("client", c.ID).Debug("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
