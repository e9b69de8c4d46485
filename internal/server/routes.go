// Package server wires HTTP handlers into a chi router via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/gopresence/internal/logging"
	"github.com/Tyrowin/gopresence/internal/metrics"
)

// SetupRoutes configures the router: the websocket endpoint, the read-only
// JSON endpoints, metrics and the browser test page.
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(s.log))
	r.Use(chimw.Recoverer)

	r.Get("/ws", s.WebSocketHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/test", TestPageHandler)

	// Browser dashboards may poll these from another origin.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins(),
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Get("/", s.HealthHandler)
		r.Get("/health", s.HealthHandler)
		r.Get("/presence", s.PresenceHandler)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if s.origins.allowAll {
		return []string{"*"}
	}
	return append([]string(nil), s.cfg.AllowedOrigins...)
}
