// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scanner metrics
	ScanCyclesTotal   *prometheus.CounterVec
	ScanCycleDuration *prometheus.HistogramVec
	CandidatesTotal   *prometheus.CounterVec
	DecisionsTotal    *prometheus.CounterVec

	// Ledger metrics
	PositionsOpened prometheus.Counter
	PositionsClosed *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	BalanceSOL      prometheus.Gauge
	DegradedFills   prometheus.Counter

	// Monitor metrics
	MonitorCyclesTotal *prometheus.CounterVec
	PnLRefreshes       prometheus.Counter

	// Oracle metrics
	OracleLookups *prometheus.CounterVec
	OracleLatency *prometheus.HistogramVec

	// Feed metrics
	FeedEventsDropped prometheus.Counter
	FeedReconnects    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_paper_sniper"
	}

	return &Metrics{
		ScanCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Scan cycles by source and status (ok, fetch_error, skipped)",
		}, []string{"source", "status"}),
		ScanCycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration by source",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
		CandidatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "candidates_total",
			Help:      "Candidates by source and outcome (evaluated, invalid, too_old, below_market_cap)",
		}, []string{"source", "outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "decisions_total",
			Help:      "Decisions by action and reason",
		}, []string{"action", "reason"}),

		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_closed_total",
			Help:      "Total number of positions closed by exit reason",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "open_positions",
			Help:      "Number of OPEN positions seen by the last monitor cycle",
		}),
		BalanceSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "balance_sol",
			Help:      "Virtual SOL balance after the last ledger mutation",
		}),
		DegradedFills: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "degraded_fills_total",
			Help:      "Opens filled at the placeholder price because the price was unknown",
		}),

		MonitorCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Monitor cycles by status (ok, error, skipped)",
		}, []string{"status"}),
		PnLRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "pnl_refreshes_total",
			Help:      "Total number of PnL refreshes",
		}),

		OracleLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "lookups_total",
			Help:      "Price lookups by resolving source (dexscreener, pumpfun, unknown)",
		}, []string{"source"}),
		OracleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "request_duration_seconds",
			Help:      "Market data request latency by source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		FeedEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_dropped_total",
			Help:      "New-token events dropped because the buffer was full",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "WebSocket reconnect attempts",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScanCycle records a finished or skipped scan cycle.
func RecordScanCycle(source, status string, durationSeconds float64) {
	DefaultMetrics.ScanCyclesTotal.WithLabelValues(source, status).Inc()
	if status != "skipped" {
		DefaultMetrics.ScanCycleDuration.WithLabelValues(source).Observe(durationSeconds)
	}
}

// RecordCandidate records the outcome of one scanned entry.
func RecordCandidate(source, outcome string) {
	DefaultMetrics.CandidatesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordDecision records a decision engine result.
func RecordDecision(action, reason string) {
	DefaultMetrics.DecisionsTotal.WithLabelValues(action, reason).Inc()
}

// RecordPositionOpened records an open and whether it used the placeholder price.
func RecordPositionOpened(degraded bool) {
	DefaultMetrics.PositionsOpened.Inc()
	if degraded {
		DefaultMetrics.DegradedFills.Inc()
	}
}

// RecordPositionClosed records a close by exit reason.
func RecordPositionClosed(reason string) {
	DefaultMetrics.PositionsClosed.WithLabelValues(reason).Inc()
}

// UpdateBalance sets the balance gauge.
func UpdateBalance(sol float64) {
	DefaultMetrics.BalanceSOL.Set(sol)
}

// RecordMonitorCycle records a monitor cycle and the open positions it saw.
func RecordMonitorCycle(status string, openPositions int) {
	DefaultMetrics.MonitorCyclesTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		DefaultMetrics.OpenPositions.Set(float64(openPositions))
	}
}

// RecordPnLRefresh increments the PnL refresh counter.
func RecordPnLRefresh() {
	DefaultMetrics.PnLRefreshes.Inc()
}

// RecordOracleLookup records which source resolved a price.
func RecordOracleLookup(source string) {
	DefaultMetrics.OracleLookups.WithLabelValues(source).Inc()
}

// RecordMarketDataLatency records a market data request latency.
func RecordMarketDataLatency(source string, seconds float64) {
	DefaultMetrics.OracleLatency.WithLabelValues(source).Observe(seconds)
}

// RecordFeedDrop increments the dropped feed events counter.
func RecordFeedDrop() {
	DefaultMetrics.FeedEventsDropped.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
