package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	msg := NewUserMessage("alice", "hello")
	event, err := NewEvent(EventMessage, msg)
	require.NoError(t, err)

	data, err := event.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventMessage, decoded.Type)

	var got Message
	require.NoError(t, json.Unmarshal(decoded.Payload, &got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hello", got.Text)
	assert.False(t, got.System)
}

func TestDecodeEventRejectsMalformedFrames(t *testing.T) {
	_, err := DecodeEvent([]byte("{not json"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"payload":"orphan"}`))
	assert.Error(t, err, "an event without a type is invalid")
}

func TestEventTextPayload(t *testing.T) {
	event := &Event{Type: EventJoin, Payload: json.RawMessage(`"alice"`)}
	text, err := event.Text()
	require.NoError(t, err)
	assert.Equal(t, "alice", text)

	event = &Event{Type: EventJoin, Payload: json.RawMessage(`{"nested":true}`)}
	_, err = event.Text()
	assert.Error(t, err)
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("maintenance at noon")
	assert.Equal(t, systemUsername, msg.Username)
	assert.True(t, msg.System)
	assert.False(t, msg.Timestamp.IsZero())
}
