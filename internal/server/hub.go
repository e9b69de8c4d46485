// Package server coordinates connection lifecycle, presence broadcast, and
// message relay for the WebSocket system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/gopresence/internal/metrics"
)

// clientSet holds every open connection, registered or not.
type clientSet struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[string]*Client)}
}

func (s *clientSet) add(c *Client) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
	return len(s.clients)
}

// remove reports whether c was present.
func (s *clientSet) remove(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.clients[c.id]; !ok || cur != c {
		return false
	}
	delete(s.clients, c.id)
	return true
}

func (s *clientSet) get(id string) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

func (s *clientSet) list() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *clientSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Hub owns the registry and serializes every lifecycle transition and relay
// through a single goroutine (Run). The pumps of each connection talk to it
// over channels only.
type Hub struct {
	cfg         Config
	registry    *Registry
	clients     *clientSet
	broadcaster *Broadcaster
	relay       *Relay
	evictions   []*Client

	connect    chan *Client
	disconnect chan *Client
	inbound    chan inboundEvent

	log    zerolog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub ready to Run.
func NewHub(cfg Config, logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        sanitizeConfig(cfg),
		registry:   NewRegistry(),
		clients:    newClientSet(),
		connect:    make(chan *Client),
		disconnect: make(chan *Client),
		inbound:    make(chan inboundEvent),
		log:        logger,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.broadcaster = newBroadcaster(h.registry, h.clients, h.markForEviction, logger)
	h.relay = newRelay(h.registry, h.clients, h.markForEviction, logger)
	return h
}

// Registry exposes the registry for read-only callers such as HTTP handlers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	return h.clients.len()
}

// Connect hands a new connection to the hub. It fails once the hub is stopping.
func (h *Hub) Connect(c *Client) error {
	select {
	case h.connect <- c:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

// Attach connects c and starts its pumps. The pumps are tracked so Shutdown
// can wait for them.
func (h *Hub) Attach(c *Client) error {
	h.wg.Add(2)
	if err := h.Connect(c); err != nil {
		h.wg.Add(-2)
		return err
	}

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// Disconnect tells the hub that c's transport is gone. Calling it more than
// once, or after shutdown, is harmless.
func (h *Hub) Disconnect(c *Client) {
	select {
	case h.disconnect <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) dispatch(evt inboundEvent) {
	select {
	case h.inbound <- evt:
	case <-h.ctx.Done():
	}
}

// Run processes hub events until Shutdown is called. It must run in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case c := <-h.connect:
			h.handleConnect(c)

		case c := <-h.disconnect:
			h.handleDisconnect(c)

		case evt := <-h.inbound:
			h.handleEvent(evt)
		}

		h.flushEvictions()
	}
}

func (h *Hub) handleEvent(evt inboundEvent) {
	switch evt.kind {
	case EventRegister:
		h.handleRegister(evt.client, evt.register.UserID)
	case EventSend:
		h.handleSend(evt.client, evt.message)
	case eventInvalid:
		h.handleInvalid(evt.client, evt.err)
	default:
		h.log.Warn().Str("kind", evt.kind).Msg("ignoring unknown hub event")
	}
}

func (h *Hub) markForEviction(c *Client) {
	h.evictions = append(h.evictions, c)
}

// flushEvictions closes connections whose queue overflowed. Removing a
// registered one changes presence, and that broadcast may in turn overflow
// other queues, so it repeats until nothing is left to evict.
func (h *Hub) flushEvictions() {
	for len(h.evictions) > 0 {
		pending := h.evictions
		h.evictions = nil

		changed := false
		for _, c := range pending {
			present, wasRegistered := h.closeClient(c)
			if !present {
				continue
			}
			metrics.Evictions.Inc()
			c.log.Warn().Msg("send queue full; connection evicted")
			changed = changed || wasRegistered
		}

		if changed {
			h.broadcaster.Broadcast()
		}
	}
}

// shutdownClients closes every open connection.
func (h *Hub) shutdownClients() {
	h.log.Info().Msg("shutting down all client connections")

	clients := h.clients.list()
	for _, c := range clients {
		h.closeClient(c)
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				c.log.Debug().Err(err).Msg("closing client connection")
			}
		}
	}

	h.log.Info().Int("count", len(clients)).Msg("closed client connections")
}

// Shutdown stops the hub and waits for every pump goroutine to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("initiating hub shutdown")

	h.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		h.log.Warn().Msg("hub loop did not stop before timeout")
		return context.DeadlineExceeded
	}

	pumps := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(pumps)
	}()

	select {
	case <-pumps:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-timer.C:
		h.log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
