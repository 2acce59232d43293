// Package realtime keeps the registry of websocket subscribers and fans
// lifecycle events out to them.
package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

// Hub owns the live connections of this process.
type Hub struct {
	cfg config.RealtimeConfig
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(cfg config.RealtimeConfig, log zerolog.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = 2 * cfg.PingInterval
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Hub{
		cfg:     cfg,
		log:     log,
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) BroadcastAll(event Event) {
	h.deliver(event, func(models.Identity) bool { return true })
}

func (h *Hub) BroadcastToAdmins(event Event) {
	h.deliver(event, models.Identity.IsAdmin)
}

func (h *Hub) SendToUser(email string, event Event) {
	h.deliver(event, func(id models.Identity) bool {
		return strings.EqualFold(id.Email, email)
	})
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) deliver(event Event, match func(models.Identity) bool) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(event.Type)).Msg("encode realtime event failed")
		return
	}
	h.deliverRaw(data, match)
}

func (h *Hub) deliverRaw(data []byte, match func(models.Identity) bool) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if match(c.identity) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.log.Warn().
				Str("conn_id", c.id).
				Str("email", c.identity.Email).
				Msg("realtime send buffer full, dropping connection")
			h.unregister(c)
		}
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		h.log.Debug().Str("conn_id", c.id).Msg("realtime connection removed")
	}
	c.close()
}
