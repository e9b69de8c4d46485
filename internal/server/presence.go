package server

import (
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gopresence/internal/metrics"
)

// Broadcaster pushes the current presence snapshot to every open connection,
// registered or not.
type Broadcaster struct {
	registry *Registry
	clients  *clientSet
	onFail   func(*Client)
	log      zerolog.Logger
}

func newBroadcaster(registry *Registry, clients *clientSet, onFail func(*Client), logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, clients: clients, onFail: onFail, log: logger}
}

// Broadcast returns the number of connections the snapshot was queued for.
// A connection that cannot take it is handed to onFail and skipped.
func (b *Broadcaster) Broadcast() int {
	entries := b.registry.Snapshot()
	payload, err := encodePresence(entries)
	if err != nil {
		b.log.Error().Err(err).Msg("encoding presence snapshot")
		return 0
	}

	delivered := 0
	for _, c := range b.clients.list() {
		if c.push(payload) {
			delivered++
			continue
		}
		c.log.Warn().Msg("presence push failed")
		b.onFail(c)
	}

	metrics.PresenceBroadcasts.Inc()
	b.log.Debug().Int("online", len(entries)).Int("delivered", delivered).Msg("presence broadcast")
	return delivered
}
