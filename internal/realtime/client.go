package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/ids"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

// Inbound frames are read only to notice pongs and disconnects.
const maxInboundMessage = 4096

// Client is one websocket connection and its outbound queue.
type Client struct {
	id       string
	identity models.Identity
	hub      *Hub
	conn     *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, identity models.Identity) *Client {
	return &Client{
		id:       ids.New(),
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.cfg.SendBuffer),
	}
}

// enqueue never blocks. It reports false when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Warn().Err(err).Str("conn_id", c.id).Msg("realtime write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("conn_id", c.id).Msg("realtime read closed")
			}
			return
		}
	}
}
