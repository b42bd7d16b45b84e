package server

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil, NewHub(10), "127.0.0.1:12345")

	require.NotNil(t, c)
	assert.NotEmpty(t, c.id)
	assert.Equal(t, sendQueueSize, cap(c.send))
	assert.NotNil(t, c.limiter)
}

// The frames below are rejected before any hub hand-off, so the hub's event
// loop does not need to be running.
func newFrameTestClient() *Client {
	return NewClient(nil, NewHub(10), "127.0.0.1:12345")
}

func TestHandleFrameDiscardsInvalidJSON(t *testing.T) {
	c := newFrameTestClient()
	assert.NotPanics(t, func() {
		c.handleFrame([]byte("{definitely not json"))
	})
}

func TestHandleFrameIgnoresEmptyIdentity(t *testing.T) {
	c := newFrameTestClient()
	// Whitespace-only identity keeps the connection pending.
	c.handleFrame([]byte(`{"type":"join","payload":"   "}`))
}

func TestHandleFrameRejectsWhitespaceMessage(t *testing.T) {
	c := newFrameTestClient()
	c.handleFrame([]byte(`{"type":"sendMessage","payload":" \t "}`))
}

func TestHandleFrameDiscardsUnknownType(t *testing.T) {
	c := newFrameTestClient()
	c.handleFrame([]byte(`{"type":"selfDestruct","payload":"now"}`))
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(errors.New("write tcp: broken pipe")))
	assert.True(t, isExpectedCloseError(errors.New("use of closed network connection")))
	assert.False(t, isExpectedCloseError(errors.New("unexpected frame")))
}
