package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for journey transitions.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	ProcessRuns  *prometheus.CounterVec
	JourneyStart *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_journey_transitions_total",
			Help: "Resolved journey events by journey type and event",
		}, []string{"journey", "event"}),
		ProcessRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_journey_process_runs_total",
			Help: "Backend process steps by process and resulting event",
		}, []string{"process", "event"}),
		JourneyStart: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_subjourney_starts_total",
			Help: "Journey changes by target journey type",
		}, []string{"journey"}),
	}
}

func (m *Metrics) IncTransition(journey, event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(journey, event).Inc()
}

func (m *Metrics) IncProcessRun(process, event string) {
	if m == nil {
		return
	}
	m.ProcessRuns.WithLabelValues(process, event).Inc()
}

func (m *Metrics) IncJourneyStart(journey string) {
	if m == nil {
		return
	}
	m.JourneyStart.WithLabelValues(journey).Inc()
}
