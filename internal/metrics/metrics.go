package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubActiveChannels tracks the number of queues with at least one subscriber.
	HubActiveChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_channels",
			Help: "Number of queues with at least one WebSocket subscriber",
		},
	)

	// HubConnectedClients tracks connected WebSocket clients across all queues.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients_total",
			Help: "Total number of connected WebSocket clients across all queues",
		},
	)

	// HubMessagesPublished counts messages fanned out, per queue.
	HubMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_published_total",
			Help: "Messages published to subscribers by queue",
		},
		[]string{"queue"},
	)

	// HubSlowClientsEvicted counts clients dropped for full send buffers.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "WebSocket clients evicted because their send buffer was full",
		},
	)
)

// Poller metrics
var (
	// PollerRunning tracks the number of active long-poll loops.
	PollerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poller_running",
			Help: "Number of queue poll loops currently running",
		},
	)

	// PollerReceiveDuration tracks long-poll receive latency in seconds.
	PollerReceiveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poller_receive_duration_seconds",
			Help:    "Long-poll receive call duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 15},
		},
	)

	// PollerMessagesReceived counts messages pulled from the backing store.
	PollerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poller_messages_received_total",
			Help: "Messages received from the backing store by queue",
		},
		[]string{"queue"},
	)

	// PollerErrors counts failed receive calls.
	PollerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poller_errors_total",
			Help: "Failed long-poll receive calls by queue",
		},
		[]string{"queue"},
	)
)

// WebSocket endpoint metrics
var (
	// WSConnectionsRejected counts rejected upgrade attempts by reason.
	WSConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_connections_rejected_total",
			Help: "Rejected WebSocket connection attempts by reason",
		},
		[]string{"reason"},
	)

	// WSMessageSendDuration tracks WebSocket write latency in seconds.
	WSMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ws_message_send_duration_seconds",
			Help:    "WebSocket message write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WSPingFailures counts failed keepalive pings.
	WSPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)
)
