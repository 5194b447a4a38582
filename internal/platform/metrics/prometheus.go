package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_upstream_requests_total",
			Help: "Upstream scoring provider requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contest_upstream_request_duration_seconds",
			Help:    "Upstream scoring provider request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EntryResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_entry_resolutions_total",
			Help: "Per-entry score resolutions by final state and source",
		},
		[]string{"state", "source"},
	)

	ContestSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_syncs_total",
			Help: "Contest synchronization runs by outcome",
		},
		[]string{"outcome"},
	)

	ContestSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contest_sync_duration_seconds",
			Help:    "Duration of one contest synchronization",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ContestsActivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_activations_total",
			Help: "Contests promoted from upcoming to active",
		},
	)

	FinalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_finalizations_total",
			Help: "Finalization attempts by outcome or rejection reason",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contest_circuit_breaker_state",
			Help: "Dependency circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"dependency"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	ScheduledJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_scheduled_jobs_total",
			Help: "Worker job runs by job name and outcome",
		},
		[]string{"job", "outcome"},
	)

	LedgerCreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_ledger_credits_total",
			Help: "Payout credit submissions to the ledger by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveCircuitState records a breaker transition for dependency.
func ObserveCircuitState(dependency, state string) {
	value := 0.0
	switch state {
	case "half_open":
		value = 1
	case "open":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(dependency).Set(value)
}
