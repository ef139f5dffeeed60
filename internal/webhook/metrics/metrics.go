package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts provider callbacks. Nil-safe.
type Metrics struct {
	Events *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_webhook_events_total",
			Help: "Provider webhook deliveries by event type and outcome (processed, ignored, rejected, failed)",
		}, []string{"type", "outcome"}),
	}
}

func (m *Metrics) IncrementEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType, outcome).Inc()
}
