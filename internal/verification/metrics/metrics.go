package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
// All methods are safe on a nil receiver.
type Metrics struct {
	ProfilesStarted     *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	SessionsCreated     prometheus.Counter
	RefreshDuration     prometheus.Histogram
	ProviderSubmitTimer prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ProfilesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_verification_profiles_started_total",
			Help: "Verification profiles created, by subject type",
		}, []string{"subject_type"}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_verification_submissions_total",
			Help: "Verification submissions by kind and outcome",
		}, []string{"kind", "outcome"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_verification_status_transitions_total",
			Help: "Applied verification status transitions",
		}, []string{"from", "to"}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "walletgate_verification_sessions_created_total",
			Help: "Control-person sessions created at the provider",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletgate_verification_refresh_duration_seconds",
			Help:    "Duration of verification status reconciliation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ProviderSubmitTimer: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletgate_verification_provider_submit_duration_seconds",
			Help:    "Duration of provider submissions including uploads",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementProfileStarted(subjectType string) {
	if m == nil {
		return
	}
	m.ProfilesStarted.WithLabelValues(subjectType).Inc()
}

// IncrementSubmission records a submission outcome: ok, invalid or failed.
func (m *Metrics) IncrementSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// ObserveRefresh records reconciliation time. Call with time.Now() at the start.
func (m *Metrics) ObserveRefresh(start time.Time) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveProviderSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.ProviderSubmitTimer.Observe(time.Since(start).Seconds())
}
