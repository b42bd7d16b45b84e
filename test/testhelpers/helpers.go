// Package testhelpers provides shared utilities for exercising the relay
// over real websocket connections in integration tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wirechat/wirechat/internal/server"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// DialChat opens a websocket connection to the test server's /ws endpoint.
// The connection is closed automatically at test cleanup.
func DialChat(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://localhost:8080"}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent encodes and writes one client event frame.
func SendEvent(t *testing.T, conn *websocket.Conn, eventType server.EventType, payload any) {
	t.Helper()

	event, err := server.NewEvent(eventType, payload)
	require.NoError(t, err)
	data, err := event.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// ReadEvent reads and decodes the next frame, failing the test if nothing
// arrives within timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) *server.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	event, err := server.DecodeEvent(data)
	require.NoError(t, err)
	return event
}

// ExpectEvent reads the next frame and asserts its type.
func ExpectEvent(t *testing.T, conn *websocket.Conn, want server.EventType, timeout time.Duration) *server.Event {
	t.Helper()

	event := ReadEvent(t, conn, timeout)
	require.Equal(t, want, event.Type, "unexpected event type")
	return event
}

// ExpectSilence asserts that no frame arrives within the window.
func ExpectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame, got %s", data)
}

// DecodeMessage unpacks a message event payload.
func DecodeMessage(t *testing.T, event *server.Event) server.Message {
	t.Helper()

	var msg server.Message
	require.NoError(t, json.Unmarshal(event.Payload, &msg))
	return msg
}

// DecodeHistory unpacks a chatHistory event payload.
func DecodeHistory(t *testing.T, event *server.Event) []server.Message {
	t.Helper()

	var history []server.Message
	require.NoError(t, json.Unmarshal(event.Payload, &history))
	return history
}

// DecodePresence unpacks a userJoined or userLeft event payload.
func DecodePresence(t *testing.T, event *server.Event) server.PresencePayload {
	t.Helper()

	var payload server.PresencePayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return payload
}
