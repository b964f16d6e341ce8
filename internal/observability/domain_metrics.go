package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	oracleCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_oracle_calls_total",
			Help: "Total number of completion oracle calls by outcome.",
		},
		[]string{"outcome"},
	)
	oracleBackoffSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlask_oracle_backoff_seconds",
			Help:    "Time spent waiting before retrying a rate-limited oracle call.",
			Buckets: []float64{1, 5, 10, 15, 30, 45, 65, 90, 120},
		},
	)
	oracleRetriesExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlask_oracle_retries_exhausted_total",
			Help: "Total number of completions abandoned after the attempt limit.",
		},
	)
	sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_sql_executions_total",
			Help: "Total number of SQL executions against the store by outcome.",
		},
		[]string{"outcome"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_translations_total",
			Help: "Total number of end-to-end question translations by outcome.",
		},
		[]string{"outcome"},
	)
	translationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlask_translation_duration_seconds",
			Help:    "End-to-end question translation latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 240},
		},
	)
)

const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

func init() {
	prometheus.MustRegister(
		oracleCallsTotal,
		oracleBackoffSeconds,
		oracleRetriesExhaustedTotal,
		sqlExecutionsTotal,
		translationsTotal,
		translationDurationSeconds,
	)
}

func ObserveOracleCall(outcome string) {
	oracleCallsTotal.WithLabelValues(outcome).Inc()
}

func ObserveOracleBackoff(wait time.Duration) {
	oracleBackoffSeconds.Observe(wait.Seconds())
}

func IncrementOracleRetriesExhausted() {
	oracleRetriesExhaustedTotal.Inc()
}

func ObserveSQLExecution(outcome string) {
	sqlExecutionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveTranslation(outcome string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(outcome).Inc()
	translationDurationSeconds.Observe(elapsed.Seconds())
}
