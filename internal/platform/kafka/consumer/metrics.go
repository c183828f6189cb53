package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds consumer batch metrics.
type Metrics struct {
	Messages *prometheus.CounterVec
	Rerouted *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_queue_messages_total",
			Help: "Queue messages handled, by result",
		}, []string{"result"}),
		Rerouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipvcore_queue_rerouted_total",
			Help: "Failed queue messages moved to a retry or dead-letter topic",
		}, []string{"topic"}),
	}
}

func (m *Metrics) ObserveBatch(total, failed int) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues("ok").Add(float64(total - failed))
	m.Messages.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) IncRerouted(topic string) {
	if m == nil {
		return
	}
	m.Rerouted.WithLabelValues(topic).Inc()
}
