// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts dispatched actions by name and terminal status
	// (ok, failed, rejected).
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestra",
		Name:      "actions_total",
		Help:      "Actions dispatched, by action name and outcome.",
	}, []string{"action", "status"})

	// TaskDuration observes per-task wall-clock time.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchestra",
		Name:      "task_duration_seconds",
		Help:      "Wall-clock duration of agent task executions.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"agent"})

	// QuotaDenials counts quota gate denials per tenant.
	QuotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestra",
		Name:      "quota_denials_total",
		Help:      "Executions denied by the quota gate.",
	}, []string{"tenant"})
)
