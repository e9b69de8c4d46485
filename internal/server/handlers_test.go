package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRouterServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(*NewConfig(), zerolog.Nop())
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthHandler(t *testing.T) {
	req := require.New(t)
	srv := newRouterServer(t)

	for _, path := range []string{"/", "/health"} {
		rec := serve(srv, http.MethodGet, path)

		req.Equal(http.StatusOK, rec.Code, path)
		req.Equal("application/json", rec.Header().Get("Content-Type"))

		var body HealthResponse
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		req.Equal("ok", body.Status)
		req.Equal(version, body.Version)
		req.Zero(body.Connections)
		req.Zero(body.Online)
	}
}

func TestPresenceHandler_Reports_Registered_Users(t *testing.T) {
	req := require.New(t)
	srv := newRouterServer(t)
	h := srv.Hub()

	connectClient(h, "anon")
	alice := connectClient(h, "alice")
	bob := connectClient(h, "bob")
	h.handleRegister(alice, "alice")
	h.handleRegister(bob, "bob")

	rec := serve(srv, http.MethodGet, "/presence")
	req.Equal(http.StatusOK, rec.Code)

	var body PresenceResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal(2, body.Count)
	req.Equal([]string{"alice", "bob"}, userIDs(body.Users))
	req.Equal(alice.ID(), body.Users[0].ConnectionID)

	health := serve(srv, http.MethodGet, "/health")
	var hb HealthResponse
	req.NoError(json.Unmarshal(health.Body.Bytes(), &hb))
	req.Equal(3, hb.Connections)
	req.Equal(2, hb.Online)
}

func TestWebSocketHandler_Requires_Upgrade(t *testing.T) {
	srv := newRouterServer(t)

	rec := serve(srv, http.MethodGet, "/ws")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, srv.Hub().ConnectionCount())
}

func TestRoutes_Method_Not_Allowed(t *testing.T) {
	req := require.New(t)
	srv := newRouterServer(t)

	for _, path := range []string{"/ws", "/health", "/presence"} {
		rec := serve(srv, http.MethodPost, path)
		req.Equal(http.StatusMethodNotAllowed, rec.Code, path)
		req.Contains(rec.Body.String(), "method not allowed")
	}
}

func TestTestPageHandler(t *testing.T) {
	srv := newRouterServer(t)

	rec := serve(srv, http.MethodGet, "/test")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	require.True(t, strings.Contains(rec.Body.String(), "new WebSocket("))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newRouterServer(t)
	serve(srv, http.MethodGet, "/health")

	rec := serve(srv, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gopresence_http_requests_total")
}

func TestCORS_On_Read_Endpoints(t *testing.T) {
	srv := newRouterServer(t)

	r := httptest.NewRequest(http.MethodGet, "/presence", nil)
	r.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, r)

	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}
