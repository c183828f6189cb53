package credentials

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for credential decisions.
type Metrics struct {
	ReuseOutcomes  *prometheus.CounterVec
	ProfileMatches *prometheus.CounterVec
	AsyncResults   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ReuseOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_reuse_outcomes_total",
			Help: "Existing identity checks by resulting journey event",
		}, []string{"event"}),
		ProfileMatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_profile_matches_total",
			Help: "Trust levels reached, by vot and matched profile",
		}, []string{"vot", "profile"}),
		AsyncResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_async_credentials_total",
			Help: "Async credential deliveries by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncReuseOutcome(event string) {
	if m == nil {
		return
	}
	m.ReuseOutcomes.WithLabelValues(event).Inc()
}

func (m *Metrics) IncProfileMatch(vot, profile string) {
	if m == nil {
		return
	}
	m.ProfileMatches.WithLabelValues(vot, profile).Inc()
}

func (m *Metrics) IncAsyncResult(result string) {
	if m == nil {
		return
	}
	m.AsyncResults.WithLabelValues(result).Inc()
}
