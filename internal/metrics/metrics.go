// Package metrics defines Prometheus metrics for pricely.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pricely"

// Check outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeAdapter     = "adapter_error"
	OutcomeFetch       = "fetch_error"
	OutcomeValidation  = "validation_error"
	OutcomePersistence = "persistence_error"
	OutcomeGone        = "tracker_gone"
	OutcomeAbandoned   = "abandoned"
)

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Total number of handler panics recovered.",
	})
)

// Health gauges set by the probe endpoints.
var (
	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 when the last liveness probe succeeded.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 when the last readiness probe succeeded.",
	})
)

// Engine metrics.
var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checks_total",
		Help:      "Tracker checks by outcome.",
	}, []string{"outcome"})

	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_duration_seconds",
		Help:      "Duration of a full tracker check in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	ChecksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checks_in_flight",
		Help:      "Number of tracker checks currently running.",
	})

	DeliveriesPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "deliveries_pending",
		Help:      "Notification deliveries started and not yet finished.",
	})

	ScheduledTrackers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduled_trackers",
		Help:      "Number of trackers in the engine schedule.",
	})

	CheckNowJoinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_now_joined_total",
		Help:      "Forced checks that joined a run already in flight.",
	})

	ResyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resync_total",
		Help:      "Schedule resyncs from the store by result.",
	}, []string{"result"})
)

// Source metrics.
var (
	SourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_fetch_duration_seconds",
		Help:      "Duration of source fetches in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})

	SourceFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fetch_errors_total",
		Help:      "Failed source fetches.",
	}, []string{"source"})

	SourceRateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_rate_limit_waits_total",
		Help:      "Fetches delayed by the per-source rate limiter.",
	}, []string{"source"})
)

// Observation and notification metrics.
var (
	ObservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_total",
		Help:      "Total number of price observations recorded.",
	})

	NotificationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Total number of crossing notifications created.",
	})

	DeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Notification delivery failures by channel.",
	}, []string{"channel"})
)
