package server

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// frame is a loose view of any server-to-client event.
type frame struct {
	Type       string            `json:"type"`
	Users      []ConnectionEntry `json:"users"`
	SenderID   string            `json:"senderId"`
	ReceiverID string            `json:"receiverId"`
	Text       string            `json:"text"`
	Error      string            `json:"error"`
}

func newTestHub(t *testing.T, customize ...func(cfg *Config)) *Hub {
	t.Helper()
	cfg := NewConfig()
	for _, fn := range customize {
		fn(cfg)
	}
	return NewHub(*cfg, zerolog.Nop())
}

// connectClient opens a transport-less connection directly on the hub goroutine's handlers.
func connectClient(h *Hub, addr string) *Client {
	c := NewClient(nil, h, addr)
	h.handleConnect(c)
	return c
}

// drain returns every frame queued for c without blocking.
func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var frames []frame
	for {
		select {
		case raw, ok := <-c.GetSendChan():
			if !ok {
				return frames
			}
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func lastPresence(t *testing.T, frames []frame) []string {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == EventPresence {
			return userIDs(frames[i].Users)
		}
	}
	t.Fatalf("no presence frame among %d frames", len(frames))
	return nil
}
