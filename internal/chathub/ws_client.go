package chathub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"introvert/backend/internal/config"
	"introvert/backend/internal/models"
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	ConnID string
	Conn   *websocket.Conn
	Router *Router
	Send   chan models.Envelope

	logger    *slog.Logger
	closeOnce sync.Once
}

func NewWebSocketClient(conn *websocket.Conn, router *Router, bufferSize int, logger *slog.Logger) *WebSocketClient {
	id := uuid.New().String()
	return &WebSocketClient{
		ConnID: id,
		Conn:   conn,
		Router: router,
		Send:   make(chan models.Envelope, bufferSize),
		logger: logger.With("conn_id", id),
	}
}

func (c *WebSocketClient) ID() string                              { return c.ConnID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

// Run starts the pumps for the connection.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops writePump. Safe to call twice.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// readPump decodes frames and hands them to the router. Any read error,
// including a missed pong, disconnects the client.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Router.Disconnect(c.ConnID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("error reading message", "error", err)
			}
			break
		}

		var ev models.InboundEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Debug("dropping undecodable frame", "error", err)
			continue
		}

		c.Router.Dispatch(c.ConnID, ev)
	}
}

// writePump writes queued envelopes, one frame each, and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// Router closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.write(env) {
				return
			}

			// Drain what is already queued while we hold the deadline.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next, ok := <-c.Send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if !c.write(next) {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) write(env models.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("error encoding envelope", "event", env.Event, "error", err)
		return true
	}
	if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("write failed", "event", env.Event, "error", err)
		return false
	}
	return true
}
