package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"introvert/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows any origin. Restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and registers the connection with the
// router. Connections start unauthenticated; a ?token= query parameter is
// treated like an authenticate event sent right after connecting.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := chathub.NewWebSocketClient(conn, h.Router, h.SendBufferSize, h.Logger)
	h.Router.Register(client)
	client.Run()

	if token := c.Query("token"); token != "" {
		if err := h.Router.Authenticate(client.ID(), token); err != nil {
			h.Logger.Debug("websocket query token rejected", "conn_id", client.ID(), "error", err)
		}
	}
}
