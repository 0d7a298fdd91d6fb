package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/events"
	"github.com/dembasy/jokko/internal/middlewares"
	"github.com/dembasy/jokko/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be shorter than pongWait
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection. It only pushes server-side events
// to the browser; all mutations go through the HTTP API.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan events.Event
	userID string

	// releases the session bus subscription feeding send
	cancel func()
}

// wireEvent is the JSON shape pushed to the browser.
type wireEvent struct {
	Type    events.Type `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.hub.presence != nil {
			go c.hub.presence.Refresh(context.Background(), c.userID)
		}
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed",
					zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			json.NewEncoder(w).Encode(wireEvent{Type: ev.Type, Payload: ev.Payload})

			// flush whatever queued up behind this event
			n := len(c.send)
			for range n {
				queued := <-c.send
				json.NewEncoder(w).Encode(wireEvent{Type: queued.Type, Payload: queued.Payload})
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and binds the connection to the caller's
// session bus.
func ServeWS(hub *Hub, sessions *services.SessionManager, c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session := sessions.Get(userID)
	if session == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no active session, log in first"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	busCh, cancel := session.Bus.Subscribe(256)
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan events.Event, 256),
		userID: userID,
		cancel: cancel,
	}

	// Forward the session bus into this connection's send queue. This
	// goroutine is the only writer and closer of client.send; it exits
	// when cancel closes the subscription.
	go func() {
		defer close(client.send)
		for ev := range busCh {
			select {
			case client.send <- ev:
			default:
				hub.log.Warn("dropping event for slow websocket client",
					zap.String("user_id", userID), zap.String("type", string(ev.Type)))
			}
		}
	}()

	hub.register <- client
	go client.writePump()
	go client.readPump()
}
