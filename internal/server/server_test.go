package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
)

func TestNewServer_NoAddress(t *testing.T) {
	s, err := NewServer(http.NotFoundHandler(), config.ClientNotify{}, logger.Nop())

	require.ErrorIs(t, err, errNoListenAddress)
	assert.Nil(t, s)
}

func TestHTTPServer_ServesUntilCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	s := newHTTPServer(handler, listener.Addr().String(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get("http://" + listener.Addr().String() + "/ping")
	assert.Error(t, err)
}

func TestHTTPServer_AddressInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	s, err := NewServer(http.NotFoundHandler(), config.ClientNotify{ListenAddress: taken.Addr().String()}, logger.Nop())
	require.NoError(t, err)

	assert.Error(t, s.Run(context.Background()))
}
