// Package metrics exposes prometheus collectors for the live delivery engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_received_total",
			Help: "Inbound live-channel events by type.",
		},
		[]string{"type"},
	)

	EventsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_rejected_total",
			Help: "Inbound events dropped before dispatch, by reason.",
		},
		[]string{"reason"},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_deliveries_total",
			Help: "Outbound frames queued to live connections, by event type.",
		},
		[]string{"type"},
	)

	DeliveriesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_deliveries_skipped_total",
			Help: "Outbound frames not queued, by reason (offline, queue_full, closed).",
		},
		[]string{"reason"},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_connections",
			Help: "Authenticated live connections currently registered.",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsReceived, EventsRejected, Deliveries, DeliveriesSkipped, LiveConnections)
}
