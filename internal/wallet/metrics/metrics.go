package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks wallet provisioning and fund movement. Nil-safe.
type Metrics struct {
	WalletsCreated      *prometheus.CounterVec
	FundMovements       *prometheus.CounterVec
	MovedCents          *prometheus.CounterVec
	Provisioning        *prometheus.CounterVec
	BalanceReadDuration prometheus.Histogram
	FundsLockWait       prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		WalletsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_wallet_created_total",
			Help: "Wallet creation attempts by mode and outcome",
		}, []string{"mode", "outcome"}),
		FundMovements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_wallet_fund_movements_total",
			Help: "Sends and withdrawals by kind and outcome",
		}, []string{"kind", "outcome"}),
		MovedCents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_wallet_moved_cents_total",
			Help: "Cents moved out of wallets by kind",
		}, []string{"kind"}),
		Provisioning: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_wallet_provisioning_total",
			Help: "Liquidation address and card provisioning by resource and result (created, existing, raced)",
		}, []string{"resource", "result"}),
		BalanceReadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletgate_wallet_balance_read_duration_seconds",
			Help:    "Duration of fresh provider balance reads",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FundsLockWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletgate_wallet_funds_lock_wait_seconds",
			Help:    "Time spent waiting for the per-wallet funds lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementWalletCreated(mode, outcome string) {
	if m == nil {
		return
	}
	m.WalletsCreated.WithLabelValues(mode, outcome).Inc()
}

// IncrementFundMovement records a send or withdrawal outcome. Successful
// movements also add to the moved total.
func (m *Metrics) IncrementFundMovement(kind, outcome string, cents int64) {
	if m == nil {
		return
	}
	m.FundMovements.WithLabelValues(kind, outcome).Inc()
	if outcome == "ok" {
		m.MovedCents.WithLabelValues(kind).Add(float64(cents))
	}
}

func (m *Metrics) IncrementProvisioning(resource, result string) {
	if m == nil {
		return
	}
	m.Provisioning.WithLabelValues(resource, result).Inc()
}

func (m *Metrics) ObserveBalanceRead(start time.Time) {
	if m == nil {
		return
	}
	m.BalanceReadDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveFundsLockWait(start time.Time) {
	if m == nil {
		return
	}
	m.FundsLockWait.Observe(time.Since(start).Seconds())
}
