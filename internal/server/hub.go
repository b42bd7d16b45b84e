// Package server coordinates connection lifecycle, session registration,
// history replay, and message fanout via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wirechat/wirechat/pkg/log"
)

type joinRequest struct {
	client   *Client
	identity string
}

type inboundMessage struct {
	client *Client
	text   string
}

// Hub owns the connection registry and the history buffer. Every mutation of
// that shared state, and every fanout, runs on the single Run goroutine, so
// the operations triggered by one inbound event complete as a unit before the
// next event's begin. That single ownership is what gives broadcasts their
// global total order. Other goroutines reach the hub only through channels.
//
// Per-recipient delivery is a non-blocking hand-off to the recipient's
// buffered send channel; a slow or stuck recipient never stalls the loop.
type Hub struct {
	registry *Registry
	history  *History
	notifier *Notifier

	attach  chan *Client
	detach  chan *Client
	joins   chan joinRequest
	inbound chan inboundMessage

	// conns tracks every live connection, announced or not, for shutdown.
	conns map[*Client]bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub whose history buffer holds at most historyCapacity
// messages. The returned hub is inert until Run is called.
func NewHub(historyCapacity int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	return &Hub{
		registry: registry,
		history:  NewHistory(historyCapacity),
		notifier: NewNotifier(registry),
		attach:   make(chan *Client),
		detach:   make(chan *Client),
		joins:    make(chan joinRequest),
		inbound:  make(chan inboundMessage),
		conns:    make(map[*Client]bool),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Attach hands a freshly upgraded connection to the hub, which starts its
// read and write pumps.
func (h *Hub) Attach(c *Client) {
	select {
	case h.attach <- c:
	case <-h.ctx.Done():
	}
}

// Detach reports that a connection's transport has closed.
func (h *Hub) Detach(c *Client) {
	select {
	case h.detach <- c:
	case <-h.ctx.Done():
	}
}

// Join submits an identity announcement for a connection.
func (h *Hub) Join(c *Client, identity string) {
	select {
	case h.joins <- joinRequest{client: c, identity: identity}:
	case <-h.ctx.Done():
	}
}

// Send submits a message-send event from a connection.
func (h *Hub) Send(c *Client, text string) {
	select {
	case h.inbound <- inboundMessage{client: c, text: text}:
	case <-h.ctx.Done():
	}
}

// Run processes hub events until the hub is shut down. It must be launched
// as a goroutine and is the only goroutine that mutates shared chat state.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllConns()
			return
		case c := <-h.attach:
			h.handleAttach(c)
		case c := <-h.detach:
			h.handleDetach(c)
		case req := <-h.joins:
			h.handleJoin(req)
		case in := <-h.inbound:
			h.handleSend(in)
		}
	}
}

func (h *Hub) handleAttach(c *Client) {
	if c == nil {
		log.Warn("nil client attach; skipping")
		return
	}

	c.closed = false
	h.conns[c] = true
	connectionsGauge.Set(float64(len(h.conns)))
	log.Info("connection attached",
		zap.String("conn", c.id),
		zap.String("addr", c.addr),
		zap.Int("connections", len(h.conns)))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

func (h *Hub) handleDetach(c *Client) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	c.closed = true
	close(c.send)
	connectionsGauge.Set(float64(len(h.conns)))

	identity, announced := h.registry.Unregister(c)
	sessionsGauge.Set(float64(h.registry.Len()))
	log.Info("connection detached",
		zap.String("conn", c.id),
		zap.String("identity", identity),
		zap.Bool("announced", announced))

	// A connection that never announced produces no leave notice.
	if !announced {
		return
	}
	notice, err := h.notifier.LeaveNotice(identity)
	if err != nil {
		log.Error("building leave notice", zap.Error(err))
		return
	}
	h.broadcast(notice)
}

func (h *Hub) handleJoin(req joinRequest) {
	if _, ok := h.conns[req.client]; !ok {
		// Transport closed between announcement and processing.
		return
	}

	if _, err := h.registry.Register(req.client, req.identity); err != nil {
		droppedEventsTotal.WithLabelValues(dropReasonDuplicateJoin).Inc()
		log.Warn("ignoring repeated identity announcement",
			zap.String("conn", req.client.id),
			zap.Error(err))
		return
	}
	sessionsGauge.Set(float64(h.registry.Len()))
	log.Info("identity joined",
		zap.String("conn", req.client.id),
		zap.String("identity", req.identity))

	// Replay goes privately to the joiner before its own join notice is
	// broadcast, so the joiner sees the notice exactly once.
	h.replayHistory(req.client)

	notice, err := h.notifier.JoinNotice(req.identity)
	if err != nil {
		log.Error("building join notice", zap.Error(err))
		return
	}
	h.broadcast(notice)
}

func (h *Hub) handleSend(in inboundMessage) {
	identity, ok := h.registry.Lookup(in.client)
	if !ok {
		// Message-send on a pending connection signals no session.
		droppedEventsTotal.WithLabelValues(dropReasonUnboundSend).Inc()
		log.Debug("discarding message from unannounced connection",
			zap.String("conn", in.client.id))
		return
	}

	msg := NewUserMessage(identity, in.text)
	h.history.Append(msg)
	historySizeGauge.Set(float64(h.history.Len()))
	messagesTotal.Inc()

	event, err := NewEvent(EventMessage, msg)
	if err != nil {
		log.Error("encoding chat message", zap.Error(err))
		return
	}
	h.broadcast(event)
}

func (h *Hub) replayHistory(c *Client) {
	event, err := NewEvent(EventChatHistory, h.history.Replay())
	if err != nil {
		log.Error("encoding history replay", zap.Error(err))
		return
	}
	data, err := event.Encode()
	if err != nil {
		log.Error("encoding history frame", zap.Error(err))
		return
	}
	if !h.deliver(c, data) {
		log.Warn("history replay not delivered", zap.String("conn", c.id))
	}
}

// broadcast fans an event out to every registered connection. A failed
// delivery is counted and logged but never surfaced; the dead connection is
// removed only when its own transport close reaches the hub.
func (h *Hub) broadcast(event *Event) {
	data, err := event.Encode()
	if err != nil {
		log.Error("encoding broadcast frame", zap.Error(err))
		return
	}

	start := time.Now()
	for _, c := range h.registry.Clients() {
		if h.deliver(c, data) {
			deliveriesTotal.Inc()
			continue
		}
		deliveryFailuresTotal.Inc()
		log.Warn("delivery failed; leaving removal to transport close",
			zap.String("conn", c.id),
			zap.String("event", string(event.Type)))
	}
	fanoutDuration.Observe(time.Since(start).Seconds())
}

// deliver queues data on the client's outbound channel without blocking.
func (h *Hub) deliver(c *Client, data []byte) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("recovered from send on closed channel", zap.Any("panic", r))
			delivered = false
		}
	}()

	if _, ok := h.conns[c]; !ok || c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) closeAllConns() {
	log.Info("closing all client connections", zap.Int("connections", len(h.conns)))
	for c := range h.conns {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn("closing client connection",
				zap.String("conn", c.id), zap.Error(err))
		}
	}
}

// Shutdown stops the event loop, closes every connection, and waits for the
// pump goroutines to finish or for the timeout to lapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info("hub shutting down")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		log.Warn("hub shutdown timed out; some pumps may still be running")
		return context.DeadlineExceeded
	}
}
