package query

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the query metrics, matching the three-way result
// taxonomy of the analysis engine plus the success case.
const (
	outcomeOK            = "ok"
	outcomeEmpty         = "empty"
	outcomeSchemaError   = "schema_error"
	outcomeInternalError = "internal_error"
)

var (
	queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grubsight",
		Subsystem: "analysis",
		Name:      "queries_total",
		Help:      "Analytical queries by operation and outcome.",
	}, []string{"operation", "outcome"})

	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grubsight",
		Subsystem: "analysis",
		Name:      "query_duration_seconds",
		Help:      "Analytical query latency by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(queriesTotal, queryDuration)
}
