package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nfrund/gymhub/internal/domain"
)

// Metrics are the channel's Prometheus instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	connections   prometheus.Gauge
	joined        prometheus.Gauge
	broadcasts    *prometheus.CounterVec
	deliveries    prometheus.Counter
	dropped       prometheus.Counter
	relayed       prometheus.Counter
	rejected      *prometheus.CounterVec
	announcements *prometheus.CounterVec
}

// NewMetrics registers the instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gymhub", Name: "connections",
			Help: "Live transport connections.",
		}),
		joined: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gymhub", Name: "joined_connections",
			Help: "Connections currently inside a gym room.",
		}),
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "room_broadcasts_total",
			Help: "Room broadcasts by event name.",
		}, []string{"event"}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "room_deliveries_total",
			Help: "Frames queued to connections by room broadcasts.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "room_dropped_total",
			Help: "Frames dropped because a connection's outbound queue was full.",
		}),
		relayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "messages_relayed_total",
			Help: "Direct messages persisted and broadcast.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "operations_rejected_total",
			Help: "Rejected channel operations by error kind.",
		}, []string{"kind"}),
		announcements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymhub", Name: "announcements_total",
			Help: "Announcement mutations by action.",
		}, []string{"action"}),
	}
}

func (m *Metrics) connectionAdded() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionRemoved() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) joinedDelta(d float64) {
	if m != nil && d != 0 {
		m.joined.Add(d)
	}
}

func (m *Metrics) broadcast(event string, delivered, dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
	m.deliveries.Add(float64(delivered))
	m.dropped.Add(float64(dropped))
}

func (m *Metrics) messageRelayed() {
	if m != nil {
		m.relayed.Inc()
	}
}

func (m *Metrics) rejectedWith(err error) {
	if m != nil {
		m.rejected.WithLabelValues(string(domain.KindOf(err))).Inc()
	}
}

func (m *Metrics) announcement(action string) {
	if m != nil {
		m.announcements.WithLabelValues(action).Inc()
	}
}
