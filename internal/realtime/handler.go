package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

// Authenticator resolves the token presented at handshake time.
type Authenticator func(token string) (models.Identity, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients send no Origin header; the token is the gate.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades the request and registers the connection. A missing or
// invalid token is answered with close code 1008 right after the upgrade.
func (h *Hub) Handler(auth Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		token := handshakeToken(r)
		identity, err := auth(token)
		if token == "" || err != nil {
			h.reject(conn, "authentication required")
			return
		}

		c := newClient(h, conn, identity)
		if !h.register(c) {
			h.reject(conn, "server shutting down")
			return
		}
		h.log.Debug().
			Str("conn_id", c.id).
			Str("email", identity.Email).
			Str("role", string(identity.Role)).
			Msg("realtime connection registered")

		go c.writePump()
		go c.readPump()
	}
}

func (h *Hub) reject(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteWait))
	conn.Close()
}

func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
