package handlers

import "github.com/prometheus/client_golang/prometheus"

type PublishMetrics struct {
	PublishRequests    *prometheus.CounterVec
	ConnectionRequests *prometheus.CounterVec
}

func (m *PublishMetrics) IncPublish(outcome string) {
	if m == nil || m.PublishRequests == nil {
		return
	}

	m.PublishRequests.WithLabelValues(outcome).Inc()
}

func (m *PublishMetrics) IncConnection(op, outcome string) {
	if m == nil || m.ConnectionRequests == nil {
		return
	}

	m.ConnectionRequests.WithLabelValues(op, outcome).Inc()
}
