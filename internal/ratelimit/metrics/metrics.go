package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections  *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter, by bucket scope",
		}, []string{"scope"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "walletgate_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		}),
	}
}

func (m *Metrics) IncrementRejections(scope string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}
