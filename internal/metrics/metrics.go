// Package metrics provides Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	TransactionsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_transactions_ingested_total",
			Help: "Total number of transactions persisted by the ingestion service",
		},
	)

	ClassificationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_classification_fallbacks_total",
			Help: "Total number of classifications that fell back to the default category",
		},
	)

	DispatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_dispatch_failures_total",
			Help: "Total number of job submissions that failed after the transaction was persisted",
		},
	)

	// Queue metrics
	JobsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_jobs_published_total",
			Help: "Total number of jobs accepted by the durable queue",
		},
	)

	JobsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_jobs_processed_total",
			Help: "Total number of jobs processed to completion by the worker pool",
		},
	)

	JobsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_jobs_failed_total",
			Help: "Total number of job processing attempts that returned an error",
		},
	)

	// DeadJobs counts jobs whose retries were exhausted. The original system
	// retained these silently; the counter exists so operators can alert on
	// the failure itself.
	DeadJobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_jobs_dead_total",
			Help: "Total number of jobs routed to the dead-letter store after exhausting retries",
		},
	)

	// Alert metrics
	AlertsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendguard_alerts_emitted_total",
			Help: "Total number of threshold-breach alert events emitted",
		},
	)
)
