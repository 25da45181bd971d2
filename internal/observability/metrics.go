package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics is the process-wide Prometheus registry for market-engine
// activity, lazily constructed the way nhbchain's ModuleMetrics is.
type MarketMetrics struct {
	Swaps              *prometheus.CounterVec
	SwapErrors         *prometheus.CounterVec
	SwapLatency        *prometheus.HistogramVec
	CircuitBreakerTrips *prometheus.CounterVec
	InsurancePayouts   *prometheus.CounterVec
	PoolCollateral     *prometheus.GaugeVec
	PoolImbalanceRatio *prometheus.GaugeVec
}

var (
	marketMetricsOnce sync.Once
	marketMetrics     *MarketMetrics
)

// Market returns the lazily-initialised market metrics registry.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketMetrics = &MarketMetrics{
			Swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "predictionmarket",
				Subsystem: "swap",
				Name:      "total",
				Help:      "Total swap instructions processed, by market and direction.",
			}, []string{"market_id", "direction", "side"}),
			SwapErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "predictionmarket",
				Subsystem: "swap",
				Name:      "errors_total",
				Help:      "Total swap instructions rejected, by market and reason.",
			}, []string{"market_id", "reason"}),
			SwapLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "predictionmarket",
				Subsystem: "swap",
				Name:      "duration_seconds",
				Help:      "Latency distribution for swap handling.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"market_id"}),
			CircuitBreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "predictionmarket",
				Subsystem: "lp",
				Name:      "circuit_breaker_trips_total",
				Help:      "Count of circuit breaker trips, by market.",
			}, []string{"market_id"}),
			InsurancePayouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "predictionmarket",
				Subsystem: "insurance",
				Name:      "payouts_total",
				Help:      "Total insurance-pool compensation paid out, by market.",
			}, []string{"market_id"}),
			PoolCollateral: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "predictionmarket",
				Subsystem: "pool",
				Name:      "collateral",
				Help:      "Current pool collateral balance, by market.",
			}, []string{"market_id"}),
			PoolImbalanceRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "predictionmarket",
				Subsystem: "pool",
				Name:      "imbalance_ratio_bps",
				Help:      "Current pool reserve imbalance ratio (x100 scale), by market.",
			}, []string{"market_id"}),
		}
		prometheus.MustRegister(
			marketMetrics.Swaps,
			marketMetrics.SwapErrors,
			marketMetrics.SwapLatency,
			marketMetrics.CircuitBreakerTrips,
			marketMetrics.InsurancePayouts,
			marketMetrics.PoolCollateral,
			marketMetrics.PoolImbalanceRatio,
		)
	})
	return marketMetrics
}
