package server

import (
	"github.com/Tyrowin/gopresence/internal/metrics"
)

// connState is the lifecycle position of a connection.
//
//	connected --register--> registered --disconnect--> closed
//	connected --disconnect--> closed
//
// A register while registered rebinds the connection to the new identity.
type connState int

const (
	stateConnected connState = iota
	stateRegistered
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateRegistered:
		return "registered"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (h *Hub) handleConnect(c *Client) {
	if c == nil {
		h.log.Warn().Msg("received nil client connection; skipping")
		return
	}

	c.state = stateConnected
	count := h.clients.add(c)
	metrics.OpenConnections.Set(float64(count))
	c.log.Info().Int("connections", count).Msg("client connected")
}

// handleRegister binds c to userID. An older connection of the same user stays
// open but loses its registration.
func (h *Hub) handleRegister(c *Client, userID string) {
	if c == nil || c.state == stateClosed {
		return
	}

	if prevID, ok := h.registry.Lookup(userID); ok && prevID != c.id {
		if prev, ok := h.clients.get(prevID); ok {
			prev.state = stateConnected
			prev.userID = ""
		}
		metrics.SessionsReplaced.Inc()
		c.log.Info().Str("user_id", userID).Str("replaced_conn_id", prevID).Msg("session replaced")
	}

	if c.state == stateRegistered && c.userID != userID {
		c.log.Info().Str("user_id", userID).Str("previous_user_id", c.userID).Msg("connection rebound")
	}

	h.registry.Register(userID, c.id)
	c.userID = userID
	c.state = stateRegistered

	metrics.OnlineUsers.Set(float64(h.registry.Len()))
	c.log.Info().Str("user_id", userID).Int("online", h.registry.Len()).Msg("client registered")

	h.broadcaster.Broadcast()
}

func (h *Hub) handleDisconnect(c *Client) {
	if c == nil {
		return
	}

	present, wasRegistered := h.closeClient(c)
	if !present {
		return
	}

	c.log.Info().Int("connections", h.clients.len()).Msg("client disconnected")

	if wasRegistered {
		h.broadcaster.Broadcast()
	}
}

// closeClient moves c to closed: it leaves the open set, its registry entry is
// dropped, and its send channel is closed so the write pump exits. It reports
// whether c was still open and whether that removed a registry entry.
func (h *Hub) closeClient(c *Client) (present, wasRegistered bool) {
	if !h.clients.remove(c) {
		return false, false
	}

	wasRegistered = h.registry.Remove(c.id)
	c.state = stateClosed
	c.userID = ""
	close(c.send)

	metrics.OpenConnections.Set(float64(h.clients.len()))
	metrics.OnlineUsers.Set(float64(h.registry.Len()))
	return true, wasRegistered
}

func (h *Hub) handleSend(c *Client, evt MessageEvent) {
	if c != nil {
		if bound, ok := h.registry.UserOf(c.id); !ok || bound != evt.SenderID {
			c.log.Debug().Str("sender_id", evt.SenderID).Str("bound_user_id", bound).Msg("sender id does not match connection identity")
		}
	}

	if h.relay.Route(evt) || c == nil || !h.cfg.NotifyUndelivered {
		return
	}

	payload, err := encodeUndelivered(evt.ReceiverID)
	if err != nil {
		return
	}
	if !c.push(payload) {
		h.markForEviction(c)
	}
}

func (h *Hub) handleInvalid(c *Client, err error) {
	if c == nil || err == nil {
		return
	}

	metrics.InvalidFrames.WithLabelValues(invalidReason(err)).Inc()

	payload, encErr := encodeError(err)
	if encErr != nil {
		return
	}
	if !c.push(payload) {
		h.markForEviction(c)
	}
}
