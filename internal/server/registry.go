// Package server tracks which display identity occupies which live
// connection via the Registry type, the source of truth for presence.
package server

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Session is the binding of one connection to the identity it announced.
// It is created once per connection and never changes afterwards.
type Session struct {
	Identity string
	JoinedAt time.Time
}

// Registry maps each live connection to its session. A connection appears
// here if and only if it completed identity announcement and has not yet
// disconnected. In normal operation every mutation happens on the hub
// goroutine; the mutex covers read paths outside it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Client]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Client]*Session)}
}

// Register binds identity to the connection and returns the new session.
// It fails with ErrAlreadyRegistered when the connection already has one;
// the existing binding is left untouched.
func (r *Registry) Register(c *Client, identity string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[c]; ok {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "kept %q, rejected %q", existing.Identity, identity)
	}

	session := &Session{Identity: identity, JoinedAt: time.Now()}
	r.sessions[c] = session
	return session, nil
}

// Unregister removes the connection's session if one exists and returns the
// identity that was bound. ok is false when the connection disconnected
// before ever announcing an identity.
func (r *Registry) Unregister(c *Client) (identity string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[c]
	if !ok {
		return "", false
	}
	delete(r.sessions, c)
	return session.Identity, true
}

// Lookup resolves the identity bound to the connection.
func (r *Registry) Lookup(c *Client) (identity string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[c]
	if !ok {
		return "", false
	}
	return session.Identity, true
}

// Snapshot returns a point-in-time roster of all present identities, sorted
// so presence payloads are deterministic.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	identities := lo.Map(lo.Values(r.sessions), func(s *Session, _ int) string {
		return s.Identity
	})
	r.mu.RUnlock()

	sort.Strings(identities)
	return identities
}

// Clients returns the connections currently holding a session. Fanout
// iterates this snapshot so a delivery cannot mutate the map mid-walk.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.sessions)
}

// Len reports how many connections hold a session.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
