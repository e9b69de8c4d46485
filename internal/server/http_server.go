// Package server constructs and starts the HTTP service with helpers that
// apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server owns every piece of state that lives as long as the process: the hub
// with its registry, the origin policy and the HTTP server.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	http     *http.Server
	started  time.Time
}

// NewServer builds a Server from cfg. Call Start before serving traffic.
func NewServer(cfg Config, logger zerolog.Logger) *Server {
	cfg = sanitizeConfig(cfg)

	s := &Server{
		cfg:     cfg,
		log:     logger,
		hub:     NewHub(cfg, logger),
		origins: newOriginPolicy(cfg.AllowedOrigins, logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	s.http = CreateServer(cfg.Port, s.SetupRoutes())
	return s
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Hub returns the hub for shutdown coordination and tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start launches the hub loop. It must be called once before connections arrive.
func (s *Server) Start() {
	s.started = time.Now()
	go s.hub.Run()
	s.log.Info().Msg("hub started and ready to manage websocket connections")
}

// ListenAndServe blocks serving HTTP until Shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Str("env", s.cfg.Env).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes every websocket connection
// and waits for their pumps. Hijacked websocket connections are not covered by
// http.Server.Shutdown, hence the hub step.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")

	httpErr := s.http.Shutdown(ctx)
	if httpErr != nil {
		s.log.Error().Err(httpErr).Msg("http server shutdown error")
	}

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(deadline), 0)
	}
	hubErr := s.hub.Shutdown(timeout)

	return errors.Join(httpErr, hubErr)
}
