package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signaling holds the relay's Prometheus collectors. All collectors are
// registered on a private registry so multiple instances can coexist in tests.
type Signaling struct {
	registry *prometheus.Registry

	ActiveRooms       prometheus.Gauge
	ActiveConnections prometheus.Gauge
	PendingGrace      prometheus.Gauge

	EventsTotal       *prometheus.CounterVec
	ReconnectionsTotal prometheus.Counter
	GraceExpiriesTotal prometheus.Counter
}

func NewSignaling() *Signaling {
	reg := prometheus.NewRegistry()

	m := &Signaling{
		registry: reg,
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one occupant.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "active_connections",
			Help:      "Number of connections currently counted as present.",
		}),
		PendingGrace: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "pending_grace_entries",
			Help:      "Connections waiting out their reconnection grace window.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "events_total",
			Help:      "Signaling events processed, by type.",
		}, []string{"type"}),
		ReconnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "reconnections_total",
			Help:      "Successful in-grace reconnections.",
		}),
		GraceExpiriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulsemeet",
			Subsystem: "signaling",
			Name:      "grace_expiries_total",
			Help:      "Grace windows that expired without a reconnection.",
		}),
	}

	reg.MustRegister(
		m.ActiveRooms,
		m.ActiveConnections,
		m.PendingGrace,
		m.EventsTotal,
		m.ReconnectionsTotal,
		m.GraceExpiriesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Signaling) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
