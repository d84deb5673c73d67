package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	WalletCreatedTotal       prometheus.Counter
	BroadcastTotal           *prometheus.CounterVec
	MemolessRegistrations    prometheus.Counter
	MemolessDepositsRevealed *prometheus.CounterVec
	MemolessPollFailures     prometheus.Counter
	MemolessActiveSessions   prometheus.Gauge
	BackendRequestDuration   *prometheus.HistogramVec
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		WalletCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_created_total",
			Help: "The total number of wallets created or imported",
		}),
		BroadcastTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_broadcast_total",
			Help: "Total transactions broadcast, by result",
		}, []string{"result"}),
		MemolessRegistrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memoless_registrations_total",
			Help: "Total memoless reference registrations broadcast",
		}),
		MemolessDepositsRevealed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memoless_deposits_revealed_total",
			Help: "Total deposit instructions revealed, by chain",
		}, []string{"chain"}),
		MemolessPollFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memoless_poll_failures_total",
			Help: "Total transient failures of the background reference re-validation",
		}),
		MemolessActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "memoless_active_sessions",
			Help: "Currently active memoless sessions",
		}),
		BackendRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chain_backend_request_duration_seconds",
			Help:    "Duration of chain backend REST calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
