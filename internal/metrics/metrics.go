package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsReceived counts ingested reports by kind.
	ReportsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_received_total",
			Help: "Total number of device reports received",
		},
		[]string{"kind"},
	)

	// ReportsIgnored counts acknowledged-but-ignored messages.
	ReportsIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_ignored_total",
			Help: "Total number of unrecognized messages acknowledged and dropped",
		},
	)

	// EventsDerived counts synthesized events by kind.
	EventsDerived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_derived_total",
			Help: "Total number of derived enter/leave/observation events",
		},
		[]string{"event"},
	)

	// Verdicts counts scored events by combined outcome.
	Verdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_verdicts_total",
			Help: "Total number of anomaly verdicts by combined outcome",
		},
		[]string{"outcome"},
	)

	// AlertTransitions counts alert session transitions by resulting status.
	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_transitions_total",
			Help: "Total number of alert session transitions",
		},
		[]string{"status"},
	)

	// CollaboratorFailures counts degraded collaborator calls.
	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_failures_total",
			Help: "Total number of failed collaborator calls",
		},
		[]string{"collaborator"},
	)

	// IngestDuration observes end-to-end report processing latency.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Report processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
