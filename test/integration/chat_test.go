// Package integration exercises the relay end to end over real websocket
// connections: join handshake, history replay, broadcast ordering, presence
// notices, and the HTTP surface.
package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirechat/wirechat/internal/server"
	"github.com/wirechat/wirechat/test/testhelpers"
)

const readTimeout = 2 * time.Second

func startRelay(t *testing.T, historyCapacity int) *httptest.Server {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.HistoryCapacity = historyCapacity
	server.SetConfig(cfg)
	server.StartHub()

	ts := testhelpers.CreateTestServer(server.SetupRoutes())
	t.Cleanup(func() {
		ts.Close()
		_ = server.GetHub().Shutdown(2 * time.Second)
		server.SetConfig(nil)
	})
	return ts
}

// joinAs announces identity and consumes the replay and self join notice.
func joinAs(t *testing.T, conn *websocket.Conn, identity string) []server.Message {
	t.Helper()

	testhelpers.SendEvent(t, conn, server.EventJoin, identity)
	replay := testhelpers.ExpectEvent(t, conn, server.EventChatHistory, readTimeout)
	testhelpers.ExpectEvent(t, conn, server.EventUserJoined, readTimeout)
	return testhelpers.DecodeHistory(t, replay)
}

func TestJoinReplayAndPresence(t *testing.T) {
	ts := startRelay(t, 50)

	alice := testhelpers.DialChat(t, ts)
	testhelpers.SendEvent(t, alice, server.EventJoin, "alice")

	replay := testhelpers.ExpectEvent(t, alice, server.EventChatHistory, readTimeout)
	history := testhelpers.DecodeHistory(t, replay)
	require.Len(t, history, 1)
	assert.True(t, history[0].System)

	joined := testhelpers.ExpectEvent(t, alice, server.EventUserJoined, readTimeout)
	payload := testhelpers.DecodePresence(t, joined)
	assert.Equal(t, "alice has joined the chat", payload.Message.Text)
	assert.Equal(t, []string{"alice"}, payload.Users)

	bob := testhelpers.DialChat(t, ts)
	testhelpers.SendEvent(t, bob, server.EventJoin, "bob")

	// Presence notices are ephemeral: bob's replay holds only the welcome
	// seed, never alice's join notice.
	bobReplay := testhelpers.ExpectEvent(t, bob, server.EventChatHistory, readTimeout)
	assert.Len(t, testhelpers.DecodeHistory(t, bobReplay), 1)

	bobJoined := testhelpers.ExpectEvent(t, bob, server.EventUserJoined, readTimeout)
	assert.Equal(t, []string{"alice", "bob"}, testhelpers.DecodePresence(t, bobJoined).Users)

	aliceSaw := testhelpers.ExpectEvent(t, alice, server.EventUserJoined, readTimeout)
	assert.Equal(t, "bob has joined the chat", testhelpers.DecodePresence(t, aliceSaw).Message.Text)

	testhelpers.SendEvent(t, alice, server.EventSendMessage, "hello everyone")
	for _, conn := range []*websocket.Conn{alice, bob} {
		event := testhelpers.ExpectEvent(t, conn, server.EventMessage, readTimeout)
		msg := testhelpers.DecodeMessage(t, event)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hello everyone", msg.Text)
		assert.False(t, msg.System)
	}

	require.NoError(t, bob.Close())
	left := testhelpers.ExpectEvent(t, alice, server.EventUserLeft, readTimeout)
	leftPayload := testhelpers.DecodePresence(t, left)
	assert.Equal(t, "bob has left the chat", leftPayload.Message.Text)
	assert.Equal(t, []string{"alice"}, leftPayload.Users)
}

func TestBroadcastOrderAcrossClients(t *testing.T) {
	ts := startRelay(t, 50)

	alice := testhelpers.DialChat(t, ts)
	joinAs(t, alice, "alice")

	bob := testhelpers.DialChat(t, ts)
	joinAs(t, bob, "bob")
	testhelpers.ExpectEvent(t, alice, server.EventUserJoined, readTimeout)

	sent := []string{"first", "second", "third", "fourth", "fifth"}
	for _, text := range sent {
		testhelpers.SendEvent(t, alice, server.EventSendMessage, text)
	}

	for _, conn := range []*websocket.Conn{alice, bob} {
		for _, want := range sent {
			event := testhelpers.ExpectEvent(t, conn, server.EventMessage, readTimeout)
			assert.Equal(t, want, testhelpers.DecodeMessage(t, event).Text)
		}
	}
}

func TestPendingConnectionReceivesNothing(t *testing.T) {
	ts := startRelay(t, 50)

	lurker := testhelpers.DialChat(t, ts)

	alice := testhelpers.DialChat(t, ts)
	joinAs(t, alice, "alice")

	// The lurker cannot speak before announcing either.
	testhelpers.SendEvent(t, lurker, server.EventSendMessage, "ghost message")
	testhelpers.SendEvent(t, alice, server.EventSendMessage, "real message")

	event := testhelpers.ExpectEvent(t, alice, server.EventMessage, readTimeout)
	assert.Equal(t, "real message", testhelpers.DecodeMessage(t, event).Text)

	testhelpers.ExpectSilence(t, lurker, 300*time.Millisecond)
}

func TestHistoryEvictionOverTheWire(t *testing.T) {
	ts := startRelay(t, 2)

	alice := testhelpers.DialChat(t, ts)
	joinAs(t, alice, "alice")

	for _, text := range []string{"A", "B", "C"} {
		testhelpers.SendEvent(t, alice, server.EventSendMessage, text)
		testhelpers.ExpectEvent(t, alice, server.EventMessage, readTimeout)
	}

	late := testhelpers.DialChat(t, ts)
	history := joinAs(t, late, "late")
	require.Len(t, history, 2)
	assert.Equal(t, "B", history[0].Text)
	assert.Equal(t, "C", history[1].Text)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	ts := startRelay(t, 50)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "running")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(metrics), "wirechat_connections")
}
