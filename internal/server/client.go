// Package server manages individual WebSocket connections, handling read/write
// pumps, rate limiting, and the bounded outbound queue of each connection.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gopresence/internal/metrics"
)

// Client is one live connection. Its lifecycle fields (state, userID) and its
// send channel are only touched by the hub goroutine; the pumps only read conn
// and drain send.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	state  connState
	userID string

	maxMessageSize int64
	writeTimeout   time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	log            zerolog.Logger
}

// NewClient creates a Client for conn with a fresh connection id. The send
// channel is buffered to SendBufferSize; conn may be nil in tests that only
// exercise the hub.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		state:          stateConnected,
		maxMessageSize: cfg.MaxMessageSize,
		writeTimeout:   cfg.WriteTimeout,
		pongWait:       cfg.PongWait,
		pingPeriod:     cfg.pingPeriod(),
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
		log:            hub.log.With().Str("conn_id", id).Str("addr", addr).Logger(),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// push queues payload without blocking. It returns false when the connection is
// closed or its queue is full.
func (c *Client) push(payload []byte) bool {
	if c.state == stateClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.log.Debug().Err(err).Msg("setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
}

// logReadError logs the reason the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.maxMessageSize).Msg("message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info().Err(err).Msg("client connection closed")
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn().Err(err).Msg("unexpected websocket close")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		metrics.RateLimitHits.Inc()
		c.log.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("interval", c.rateLimit.RefillInterval).
			Msg("rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// processMessage decodes a raw frame and hands it to the hub. Rejected frames
// are reported back to this connection only.
func (c *Client) processMessage(raw []byte) {
	evt, err := decodeEvent(raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("rejected inbound frame")
		c.hub.dispatch(inboundEvent{client: c, kind: eventInvalid, err: err})
		return
	}
	evt.client = c
	c.hub.dispatch(evt)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection closes the transport; the second pump to call it sees an
// expected error.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("closing connection")
	}
}

// handleMessage writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.log.Debug().Err(err).Msg("setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("write failed")
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close frame; the pump always stops afterwards.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("writing close message")
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug().Err(err).Msg("writing ping")
		return false
	}
	return true
}
