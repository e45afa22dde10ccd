package signaling

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the relay's operational counters. A nil *Metrics is
// valid and records nothing, so tests can run the hub without a registry.
type Metrics struct {
	roomsActive       prometheus.Gauge
	connectionsActive prometheus.Gauge
	messagesRelayed   *prometheus.CounterVec
	shareConflicts    prometheus.Counter
	roomsFull         prometheus.Counter
}

// NewMetrics registers the relay collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nodecall_rooms_active",
			Help: "Number of rooms with at least one participant.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nodecall_connections_active",
			Help: "Number of open signaling connections.",
		}),
		messagesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodecall_messages_relayed_total",
			Help: "Messages processed by the hub, by event.",
		}, []string{"event"}),
		shareConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodecall_share_conflicts_total",
			Help: "start-screen-share requests rejected because a sharer was active.",
		}),
		roomsFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodecall_rooms_full_total",
			Help: "join-room requests rejected because the room was full.",
		}),
	}
	reg.MustRegister(m.roomsActive, m.connectionsActive, m.messagesRelayed, m.shareConflicts, m.roomsFull)
	return m
}

func (m *Metrics) setRooms(n int) {
	if m != nil {
		m.roomsActive.Set(float64(n))
	}
}

func (m *Metrics) addConnections(delta int) {
	if m != nil {
		m.connectionsActive.Add(float64(delta))
	}
}

func (m *Metrics) countMessage(event string) {
	if m != nil {
		m.messagesRelayed.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) countShareConflict() {
	if m != nil {
		m.shareConflicts.Inc()
	}
}

func (m *Metrics) countRoomFull() {
	if m != nil {
		m.roomsFull.Inc()
	}
}
