package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the referral module.
// Tracks code issuance, redemption outcomes, ledger transitions and
// critical path durations.
type Metrics struct {
	CodesCreated      prometheus.Counter
	Redemptions       *prometheus.CounterVec
	Finalized         prometheus.Counter
	Cancelled         prometheus.Counter
	PointsAwarded     prometheus.Counter
	TxRetries         *prometheus.CounterVec
	LeaderboardCache  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		CodesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "referrals_codes_created_total",
			Help: "Total number of referral codes created",
		}),
		Redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referrals_redemptions_total",
			Help: "Redemption attempts by outcome (ok or rejection code)",
		}, []string{"outcome"}),
		Finalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "referrals_finalized_total",
			Help: "Total number of referrals finalized",
		}),
		Cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "referrals_cancelled_total",
			Help: "Total number of referrals cancelled",
		}),
		PointsAwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "referrals_points_awarded_total",
			Help: "Total points awarded by finalized referrals",
		}),
		TxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referrals_tx_retries_total",
			Help: "Transactions retried after a storage conflict",
		}, []string{"operation"}),
		LeaderboardCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referrals_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result",
		}, []string{"result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "referrals_operation_duration_seconds",
			Help:    "Duration of referral engine operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncCodesCreated() {
	m.CodesCreated.Inc()
}

func (m *Metrics) IncRedemption(outcome string) {
	m.Redemptions.WithLabelValues(outcome).Inc()
}

// IncFinalized records a completion and the points it awarded.
func (m *Metrics) IncFinalized(points int) {
	m.Finalized.Inc()
	if points > 0 {
		m.PointsAwarded.Add(float64(points))
	}
}

func (m *Metrics) IncCancelled() {
	m.Cancelled.Inc()
}

func (m *Metrics) IncTxRetry(operation string) {
	m.TxRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LeaderboardCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
