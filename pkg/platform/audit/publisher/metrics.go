package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit emission.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers the audit publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_audit_events_emitted_total",
			Help: "Audit events accepted by the audit store, by event name",
		}, []string{"event"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ipvcore_audit_persist_failures_total",
			Help: "Audit events the store refused",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ipvcore_audit_persist_duration_seconds",
			Help:    "Time spent writing one audit event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEmitted(event string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(event).Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(seconds)
}
