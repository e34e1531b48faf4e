package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the realtime core. Registered on the default registry and
// served by promhttp in cmd/server.
var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ylack_ws_connections_active",
		Help: "Currently open websocket connections.",
	})

	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ylack_ws_broadcasts_total",
		Help: "Room broadcasts by event kind.",
	}, []string{"event"})

	BroadcastDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ylack_ws_broadcast_drops_total",
		Help: "Frames dropped because a member's send buffer was full.",
	})

	TypingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ylack_typing_transitions_total",
		Help: "Typing state transitions by direction (start, stop).",
	}, []string{"direction"})

	MessagesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ylack_messages_submitted_total",
		Help: "Messages accepted by the delivery pipeline.",
	})
)
