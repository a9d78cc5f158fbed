package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the process-wide instrumentation. One instance is wired
// through the container; components record through it rather than through
// package globals so tests can pass a throwaway registry.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	EventsBroadcast   *prometheus.CounterVec
	ChannelsDropped   prometheus.Counter
	StoreRecords      *prometheus.GaugeVec
	PersistFailures   prometheus.Counter

	Registry *prometheus.Registry
}

// NewMetrics builds the metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recipehub_ws_active_connections",
			Help: "Currently open event-stream connections.",
		}),
		EventsBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recipehub_events_broadcast_total",
			Help: "Change events fanned out, by event type.",
		}, []string{"type"}),
		ChannelsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipehub_ws_channels_dropped_total",
			Help: "Connections removed after a failed write or close.",
		}),
		StoreRecords: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recipehub_store_records",
			Help: "Records held in the in-memory store, by entity.",
		}, []string{"entity"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipehub_persist_failures_total",
			Help: "Durable writes that failed after the in-memory write succeeded.",
		}),
		Registry: reg,
	}
}
