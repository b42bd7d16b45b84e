// Package server exposes the HTTP handlers: WebSocket upgrade, health check,
// and metrics.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wirechat/wirechat/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the request and attaches the connection to the
// hub. The connection starts pending; it only participates in broadcasts
// after the hub accepts its identity announcement.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, hub, r.RemoteAddr)

	// The hub launches the pump goroutines once the client is attached.
	client.hub.Attach(client)
}

// HealthHandler reports that the relay is serving.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "wirechat relay is running!")
}
