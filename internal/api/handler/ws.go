package handler

import (
	"net/http"

	"incluverse/backend/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins; the feed carries no secrets
	// beyond what GET /complaints already returns.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and subscribes it to the event feed.
// The role from an optional token is only recorded in the log.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	role := c.GetString(roleKey)
	if role == "" {
		role = RoleUser
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := events.NewWebSocketClient(h.Hub, conn)
	if !h.Hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	log.WithFields(log.Fields{"client": client.ID, "role": role}).Info("event feed subscribed")
	client.Run()
}
