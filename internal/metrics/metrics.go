// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_assessments_total",
			Help: "Total number of trust-score assessments by source and grade",
		},
		[]string{"source", "grade"},
	)

	AssessmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credivist_assessment_duration_seconds",
			Help:    "Duration of a full scoring pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"source"},
	)

	OracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credivist_risk_oracle_duration_seconds",
			Help:    "Duration of risk oracle predictions",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"oracle"},
	)

	OracleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_risk_oracle_errors_total",
			Help: "Total number of failed risk oracle predictions",
		},
		[]string{"oracle"},
	)

	LoanVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_loan_verdicts_total",
			Help: "Total number of loan eligibility verdicts",
		},
		[]string{"verdict"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_worker_jobs_completed_total",
			Help: "Total number of async assessment jobs completed",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credivist_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BusMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_bus_messages_total",
			Help: "Event bus messages by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credivist_worker_jobs_failed_total",
			Help: "Total number of async assessment jobs that failed",
		},
		[]string{"stage"},
	)
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
