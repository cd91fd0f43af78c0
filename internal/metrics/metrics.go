package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerRequests counts REST calls to the ledger by method and outcome
	LedgerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_ledger_requests_total",
			Help: "Total number of REST requests issued to the ledger",
		},
		[]string{"method", "status"},
	)

	// NotificationsTotal counts WebSocket notifications by classification
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_notifications_total",
			Help: "Total number of transfer notifications received",
		},
		[]string{"result"},
	)

	// EventsEmitted counts lifecycle events by event name
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_events_emitted_total",
			Help: "Total number of lifecycle events emitted to subscribers",
		},
		[]string{"event"},
	)

	// ChannelReconnects counts WebSocket reconnect attempts by outcome
	ChannelReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_channel_reconnects_total",
			Help: "Total number of notification channel reconnect attempts",
		},
		[]string{"status"},
	)

	// TransfersSubmitted counts outbound transfer submissions by outcome
	TransfersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_transfers_submitted_total",
			Help: "Total number of outbound transfers submitted",
		},
		[]string{"status"},
	)
)
