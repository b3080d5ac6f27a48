package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the registry service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations      *prometheus.CounterVec
	SinkFailures    *prometheus.CounterVec
	ReplayedRecords prometheus.Counter
	ClaimedLands    prometheus.Gauge
	ActiveTrades    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landclaim_operations_total",
			Help: "Registry operations by method and result code",
		}, []string{"method", "result"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landclaim_sink_failures_total",
			Help: "Failed deliveries of committed events to mirror sinks",
		}, []string{"sink"}),
		ReplayedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "landclaim_replayed_records_total",
			Help: "Journal or chain records applied through replay",
		}),
		ClaimedLands: factory.NewGauge(prometheus.GaugeOpts{
			Name: "landclaim_claimed_lands",
			Help: "Lands that currently have an owner",
		}),
		ActiveTrades: factory.NewGauge(prometheus.GaugeOpts{
			Name: "landclaim_active_trades",
			Help: "Proposed trades not yet accepted",
		}),
	}
}

func (m *Metrics) ObserveOperation(method, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(method, result).Inc()
}

func (m *Metrics) ObserveSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveReplay(n int) {
	if m == nil {
		return
	}
	m.ReplayedRecords.Add(float64(n))
}

// SetSizes records the current registry sizes.
func (m *Metrics) SetSizes(claimedLands, activeTrades int) {
	if m == nil {
		return
	}
	m.ClaimedLands.Set(float64(claimedLands))
	m.ActiveTrades.Set(float64(activeTrades))
}
