package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for CRI callbacks.
type Metrics struct {
	Outcomes      *prometheus.CounterVec
	OAuthRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_cri_callback_outcomes_total",
			Help: "CRI callbacks by issuer and resulting journey outcome",
		}, []string{"cri_id", "outcome"}),
		OAuthRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_cri_oauth_requests_total",
			Help: "CRI authorize redirects built, by issuer",
		}, []string{"cri_id"}),
	}
}

func (m *Metrics) IncOutcome(criID, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(criID, outcome).Inc()
}

func (m *Metrics) IncOAuthRequest(criID string) {
	if m == nil {
		return
	}
	m.OAuthRequests.WithLabelValues(criID).Inc()
}
