package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/presence"
	"github.com/dembasy/jokko/pkg/logger"
)

// Hub tracks the live WebSocket connections per user and pushes their
// session's domain events down each socket. Presence flips online on
// the first connection and offline when the last one drops.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // userID -> connections

	register   chan *Client
	unregister chan *Client

	presence *presence.Tracker
	log      *logger.Logger
}

func NewHub(tracker *presence.Tracker, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   tracker,
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.clients[client.userID]
			if !ok {
				conns = make(map[*Client]bool)
				h.clients[client.userID] = conns
			}
			conns[client] = true
			first := len(conns) == 1
			h.mu.Unlock()

			if first && h.presence != nil {
				if err := h.presence.SetOnline(context.Background(), client.userID); err != nil {
					h.log.Warn("failed to mark user online",
						zap.String("user_id", client.userID), zap.Error(err))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			last := false
			if conns, ok := h.clients[client.userID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(h.clients, client.userID)
						last = true
					}
				}
			}
			h.mu.Unlock()

			if last && h.presence != nil {
				if err := h.presence.SetOffline(context.Background(), client.userID); err != nil {
					h.log.Warn("failed to mark user offline",
						zap.String("user_id", client.userID), zap.Error(err))
				}
			}
		}
	}
}

// IsConnected reports whether user has at least one open connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
