package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
)

func TestNewServer(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, ReadTimeout: 5 * time.Second}
	server := NewServer(cfg, http.NewServeMux(), logging.NewNopLogger())

	assert.Equal(t, "127.0.0.1:8080", server.Addr())
	assert.Equal(t, 5*time.Second, server.srv.ReadTimeout)
	assert.NotNil(t, server.Handler())
}

func TestServer_StartAndShutdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "pong") })

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}
	server := NewServer(cfg, mux, logging.NewNopLogger())
	require.NoError(t, server.Listen())

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	resp, err := http.Get("http://" + server.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	server := NewServer(config.ServerConfig{Host: "127.0.0.1"}, http.NewServeMux(), logging.NewNopLogger())
	assert.NoError(t, server.Shutdown(context.Background()))
}

//Personal.AI order the ending
