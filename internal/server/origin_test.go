package server

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"case insensitive", []string{"http://LOCALHOST:8080"}, "HTTP://localhost:8080", true},
		{"path ignored", []string{"http://localhost:8080/app"}, "http://localhost:8080", true},
		{"other port", []string{"http://localhost:8080"}, "http://localhost:9090", false},
		{"missing origin", []string{"http://localhost:8080"}, "", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"wildcard still needs origin", []string{"*"}, "", false},
		{"invalid config entry", []string{"not-an-origin"}, "not-an-origin", false},
		{"nothing allowed", nil, "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed, zerolog.Nop())
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.want, policy.checkOrigin(r))
		})
	}
}
