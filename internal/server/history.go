// Package server keeps the bounded message log replayed to newly joined
// connections via the History type.
package server

import "sync"

const welcomeText = "Welcome to the chat!"

// History is an insertion-ordered log of past messages with a fixed capacity.
// When an append would exceed capacity the oldest entry is evicted. The seed
// welcome message counts against capacity and is evicted like any other
// entry. Presence notices are never appended; only the message-send path
// mutates the buffer.
type History struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
}

// NewHistory creates a history bounded to capacity, seeded with the system
// welcome message. A non-positive capacity falls back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	h := &History{
		capacity: capacity,
		messages: make([]Message, 0, capacity),
	}
	h.Append(NewSystemMessage(welcomeText))
	return h
}

// Append adds msg at the tail, evicting from the head when full. It never fails.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if overflow := len(h.messages) - h.capacity; overflow > 0 {
		h.messages = append(h.messages[:0], h.messages[overflow:]...)
	}
}

// Replay returns the current buffer content oldest-first. The returned slice
// is a copy; later appends do not affect it.
func (h *History) Replay() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make([]Message, len(h.messages))
	copy(snapshot, h.messages)
	return snapshot
}

// Len reports how many messages are buffered.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
