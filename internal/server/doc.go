// Package server implements the wirechat relay core: a WebSocket gateway
// that binds each connection to a display identity, replays a bounded
// message history to new joiners, and fans user messages and presence
// notices out to every joined connection in a single global order.
//
// The implementation is organized into specialized files for the registry,
// history buffer, presence notices, hub, clients, configuration, routing,
// and HTTP handlers to keep the codebase maintainable and testable.
package server
