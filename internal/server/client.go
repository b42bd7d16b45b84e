// Package server manages individual WebSocket connections: read/write pumps,
// inbound event dispatch, rate limiting, and lifecycle control.
package server

import (
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wirechat/wirechat/pkg/log"
)

const (
	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// Client is one live duplex connection. It starts out pending (no identity)
// and becomes joined when the hub accepts its announcement; the binding
// itself lives in the registry, not here.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	addr string

	// closed is owned by the hub goroutine.
	closed bool

	maxMessageSize int64
	limiter        *tokenBucket
	rateLimit      RateLimitConfig
}

// NewClient wraps an upgraded WebSocket connection. The send channel is
// buffered so fanout can hand off frames without blocking.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, sendQueueSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

func (c *Client) logger() *zap.Logger {
	return log.L().With(zap.String("conn", c.id), zap.String("addr", c.addr))
}

func (c *Client) setupReadDeadlines() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger().Warn("setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger().Warn("setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// shouldStopReading classifies a read error and reports whether the read
// loop should exit. Every non-nil error ends the loop; classification only
// affects how it is logged.
func (c *Client) shouldStopReading(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger().Warn("frame exceeded maximum size",
			zap.Int64("max_bytes", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger().Info("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger().Info("connection closed", zap.Error(err))
	default:
		c.logger().Warn("websocket read error", zap.Error(err))
	}
	return true
}

// handleFrame decodes one inbound frame and drives the pending/joined state
// machine through the hub.
func (c *Client) handleFrame(raw []byte) {
	event, err := DecodeEvent(raw)
	if err != nil {
		droppedEventsTotal.WithLabelValues(dropReasonInvalidFrame).Inc()
		c.logger().Warn("discarding invalid frame", zap.Error(err))
		return
	}

	switch event.Type {
	case EventJoin:
		identity, err := event.Text()
		if err != nil {
			droppedEventsTotal.WithLabelValues(dropReasonInvalidFrame).Inc()
			c.logger().Warn("discarding malformed join", zap.Error(err))
			return
		}
		identity = strings.TrimSpace(identity)
		if identity == "" {
			// Empty announcement: connection stays pending.
			c.logger().Debug("ignoring empty identity announcement")
			return
		}
		c.hub.Join(c, identity)

	case EventSendMessage:
		text, err := event.Text()
		if err != nil {
			droppedEventsTotal.WithLabelValues(dropReasonInvalidFrame).Inc()
			c.logger().Warn("discarding malformed message", zap.Error(err))
			return
		}
		if strings.TrimSpace(text) == "" {
			droppedEventsTotal.WithLabelValues(dropReasonEmptyBody).Inc()
			c.logger().Debug("discarding whitespace-only message")
			return
		}
		c.hub.Send(c, text)

	default:
		droppedEventsTotal.WithLabelValues(dropReasonInvalidFrame).Inc()
		c.logger().Warn("discarding frame with unknown type",
			zap.String("type", string(event.Type)))
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger().Warn("closing connection in read pump", zap.Error(err))
		}
	}()

	c.setupReadDeadlines()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.shouldStopReading(err) {
			return
		}

		if c.limiter != nil && !c.limiter.allow() {
			droppedEventsTotal.WithLabelValues(dropReasonRateLimited).Inc()
			c.logger().Warn("rate limit exceeded; discarding frame",
				zap.Int("burst", c.rateLimit.Burst),
				zap.Duration("refill_interval", c.rateLimit.RefillInterval))
			continue
		}

		c.handleFrame(raw)
	}
}

// writePump drains the send channel onto the wire, one frame per websocket
// message so envelope framing stays intact, and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger().Warn("closing connection in write pump", zap.Error(err))
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger().Warn("setting write deadline", zap.Error(err))
				return
			}
			if !ok {
				// Hub closed the channel; tell the peer goodbye.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					c.logger().Warn("writing close message", zap.Error(err))
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					c.logger().Warn("writing frame", zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger().Warn("setting write deadline for ping", zap.Error(err))
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					c.logger().Warn("writing ping", zap.Error(err))
				}
				return
			}

		case <-c.hub.ctx.Done():
			// Hub is shutting down; the read side is torn down by the hub
			// closing the connection.
			return
		}
	}
}

// isExpectedCloseError reports whether an error is routine connection
// teardown noise.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
