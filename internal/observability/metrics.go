package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "request_transitions_total", Help: "Committed request status transitions"},
		[]string{"from", "to"},
	)
	TransitionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "request_transition_conflicts_total", Help: "Optimistic update conflicts during transitions"},
	)
	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "matches_total", Help: "Successful provider assignments"},
	)
	NoProviderTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "no_provider_total", Help: "Assignment attempts that found no eligible provider"},
	)
	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "payment_reconciliations_total", Help: "Payment reconciliation outcomes"},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadassist", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roadassist",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
