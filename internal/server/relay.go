package server

import (
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gopresence/internal/metrics"
)

// Relay forwards a MessageEvent to the receiver's live connection. Nothing is
// buffered: an offline receiver means the event is dropped.
type Relay struct {
	registry *Registry
	clients  *clientSet
	onFail   func(*Client)
	log      zerolog.Logger
}

func newRelay(registry *Registry, clients *clientSet, onFail func(*Client), logger zerolog.Logger) *Relay {
	return &Relay{registry: registry, clients: clients, onFail: onFail, log: logger}
}

// Route reports whether evt was queued on the receiver's connection.
func (r *Relay) Route(evt MessageEvent) bool {
	log := r.log.With().Str("sender", evt.SenderID).Str("receiver", evt.ReceiverID).Logger()

	connID, ok := r.registry.Lookup(evt.ReceiverID)
	if !ok {
		metrics.MessagesDropped.WithLabelValues("offline").Inc()
		log.Debug().Msg("receiver offline; message dropped")
		return false
	}

	target, ok := r.clients.get(connID)
	if !ok {
		metrics.MessagesDropped.WithLabelValues("offline").Inc()
		log.Debug().Str("conn_id", connID).Msg("receiver connection gone; message dropped")
		return false
	}

	payload, err := encodeReceive(evt)
	if err != nil {
		log.Error().Err(err).Msg("encoding message")
		return false
	}

	if !target.push(payload) {
		metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
		log.Warn().Str("conn_id", connID).Msg("receiver queue full; message dropped")
		r.onFail(target)
		return false
	}

	metrics.MessagesRelayed.Inc()
	return true
}
