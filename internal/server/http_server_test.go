package server

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCreateServer(t *testing.T) {
	req := require.New(t)
	mux := http.NewServeMux()

	srv := CreateServer(":8080", mux)

	req.Equal(":8080", srv.Addr)
	req.Equal(15*time.Second, srv.ReadTimeout)
	req.Equal(15*time.Second, srv.WriteTimeout)
	req.Equal(60*time.Second, srv.IdleTimeout)
}

func TestNewServer_Uses_Configured_Port(t *testing.T) {
	cfg := NewConfig()
	cfg.Port = ":18084"

	srv := NewServer(*cfg, zerolog.Nop())

	require.Equal(t, ":18084", srv.http.Addr)
	require.NotNil(t, srv.Handler())
}

func TestServer_Concurrent_Shutdown(t *testing.T) {
	srv := NewServer(*NewConfig(), zerolog.Nop())
	srv.Start()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			errs <- srv.Shutdown(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestServer_Shutdown_Honours_Expired_Context(t *testing.T) {
	// The hub loop never started, so it cannot report done.
	srv := NewServer(*NewConfig(), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, srv.Shutdown(ctx), context.DeadlineExceeded)
}
