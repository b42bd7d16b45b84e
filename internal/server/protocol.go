// Package server defines the JSON wire format exchanged between clients and
// the relay. Every frame is a single Event envelope; the payload shape is
// determined by the event type.
package server

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// EventType identifies the kind of frame being exchanged.
type EventType string

const (
	// Client -> server
	EventJoin        EventType = "join"
	EventSendMessage EventType = "sendMessage"

	// Server -> client
	EventChatHistory EventType = "chatHistory"
	EventUserJoined  EventType = "userJoined"
	EventUserLeft    EventType = "userLeft"
	EventMessage     EventType = "message"
)

// Event is the envelope for every frame on a connection.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into a ready-to-send Event.
func NewEvent(t EventType, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s payload", t)
	}
	return &Event{Type: t, Payload: raw}, nil
}

// Encode returns the JSON bytes for the event.
func (e *Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s event", e.Type)
	}
	return data, nil
}

// DecodeEvent parses a raw frame into an Event. The payload is left opaque.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decoding event")
	}
	if e.Type == "" {
		return nil, errors.New("event has no type")
	}
	return &e, nil
}

// Text decodes the payload as a bare JSON string. Both inbound event types
// (join, sendMessage) carry their data this way.
func (e *Event) Text() (string, error) {
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return "", errors.Wrapf(err, "decoding %s payload", e.Type)
	}
	return s, nil
}

// systemUsername is the sender shown on relay-generated messages.
const systemUsername = "System"

// Message is one immutable chat entry. Timestamps are assigned by the relay
// at receipt time, never taken from the client.
type Message struct {
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	System    bool      `json:"isSystem,omitempty"`
}

// NewUserMessage builds a user message stamped with the current time.
func NewUserMessage(username, text string) Message {
	return Message{Username: username, Text: text, Timestamp: time.Now()}
}

// NewSystemMessage builds a relay-generated message stamped with the current time.
func NewSystemMessage(text string) Message {
	return Message{Username: systemUsername, Text: text, Timestamp: time.Now(), System: true}
}

// PresencePayload is carried by userJoined and userLeft events: the system
// notice plus the roster of identities present after the change.
type PresencePayload struct {
	Message Message  `json:"message"`
	Users   []string `json:"users"`
}
