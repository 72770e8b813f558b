package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_generations_total",
		Help: "The total number of generation requests by outcome",
	}, []string{"kind", "outcome"})

	GenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insight_generation_attempts",
		Help:    "Number of completion attempts spent per generation request",
		Buckets: []float64{1, 2, 3, 4},
	})

	CompletionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insight_completion_request_duration_seconds",
		Help:    "Duration of completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "model"})

	CompletionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_completion_errors_total",
		Help: "Completion errors by classified kind",
	}, []string{"provider", "kind"})

	ProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "insight_provider_available",
		Help: "Whether a completion provider is configured and available (1/0)",
	}, []string{"provider"})

	GateChecksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_gate_checks_failed_total",
		Help: "Quality gate check failures by check name",
	}, []string{"check"})

	DropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_drops_total",
		Help: "Total number of skipped or dropped generation requests by reason",
	}, []string{"reason"})

	AuditFilteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_audit_filtered_total",
		Help: "Artifacts filtered out of audited views by reason",
	}, []string{"reason"})

	ViewBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insight_view_build_duration_seconds",
		Help:    "Duration of audited view builds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	SchedulerEligibleSubjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "insight_scheduler_eligible_subjects",
		Help: "Number of subjects eligible for generation at the last tick",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insight_events_dropped_total",
		Help: "Observability events dropped because the sink queue was full",
	})
)
