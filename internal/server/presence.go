// Package server formats join and leave announcements via the Notifier type.
package server

// Notifier derives presence announcements from registry changes and formats
// them as system messages. Notices are ephemeral: they are broadcast but
// never appended to history, so later joiners do not see them in replay.
type Notifier struct {
	registry *Registry
}

// NewNotifier creates a notifier that reads the roster from registry.
func NewNotifier(registry *Registry) *Notifier {
	return &Notifier{registry: registry}
}

// JoinNotice builds the userJoined event announcing identity, carrying the
// roster as it stands after the join.
func (n *Notifier) JoinNotice(identity string) (*Event, error) {
	return NewEvent(EventUserJoined, PresencePayload{
		Message: NewSystemMessage(identity + " has joined the chat"),
		Users:   n.registry.Snapshot(),
	})
}

// LeaveNotice builds the userLeft event announcing identity's departure.
// Callers must skip it when the disconnecting connection never announced.
func (n *Notifier) LeaveNotice(identity string) (*Event, error) {
	return NewEvent(EventUserLeft, PresencePayload{
		Message: NewSystemMessage(identity + " has left the chat"),
		Users:   n.registry.Snapshot(),
	})
}
