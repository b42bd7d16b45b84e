// Package server constructs and starts the relay HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wirechat/wirechat/pkg/log"
)

// hub is the process-wide broadcast authority. StartHub rebuilds it from the
// active configuration before the HTTP server begins serving.
var hub = NewHub(defaultHistoryCapacity)

// CreateServer creates an HTTP server for the given port and handler with
// timeouts suitable for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub builds a hub from the active configuration and starts its event
// loop. It must be called before the HTTP server accepts connections.
func StartHub() {
	hub = NewHub(currentConfig().HistoryCapacity)
	go hub.Run()
	log.Info("hub started", zap.Int("history_capacity", currentConfig().HistoryCapacity))
}

// StartServer starts the HTTP server and blocks until it exits.
func StartServer(server *http.Server) error {
	log.Info("server listening", zap.String("addr", server.Addr))
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
		return err
	}

	log.Info("HTTP server shutdown complete")
	return nil
}

// GetHub returns the process-wide hub for shutdown coordination.
func GetHub() *Hub {
	return hub
}
