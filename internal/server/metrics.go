// Package server exposes Prometheus metrics for the relay core.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "wirechat"

// Reasons recorded on droppedEventsTotal.
const (
	dropReasonInvalidFrame  = "invalid_frame"
	dropReasonUnboundSend   = "unbound_send"
	dropReasonEmptyBody     = "empty_body"
	dropReasonDuplicateJoin = "duplicate_join"
	dropReasonRateLimited   = "rate_limited"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "connections",
		Help:      "Live websocket connections, joined or still pending.",
	})

	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions",
		Help:      "Connections that completed identity announcement.",
	})

	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "messages_total",
		Help:      "User messages accepted, appended to history, and broadcast.",
	})

	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deliveries_total",
		Help:      "Per-recipient deliveries handed to outbound transports.",
	})

	deliveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "delivery_failures_total",
		Help:      "Per-recipient deliveries that could not be queued.",
	})

	droppedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "dropped_events_total",
		Help:      "Inbound events discarded before reaching the hub state machine.",
	}, []string{"reason"})

	fanoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "fanout_duration_seconds",
		Help:      "Time spent handing one broadcast to all recipients.",
		Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
	})

	historySizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "history_size",
		Help:      "Messages currently held in the replay buffer.",
	})
)
