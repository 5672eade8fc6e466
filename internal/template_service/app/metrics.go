package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	templatesCreatedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "template_engine",
			Name:      "templates_created_total",
			Help:      "Total templates created.",
		},
		[]string{"type"},
	)

	validationFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "template_engine",
			Name:      "validation_failures_total",
			Help:      "Total create/update requests rejected by validation.",
		},
	)

	rendersCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "template_engine",
			Name:      "renders_total",
			Help:      "Total render attempts.",
		},
		[]string{"type", "status"}, // status: success, missing_variable, render_error, not_found
	)

	renderDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "template_engine",
			Name:      "render_duration_seconds",
			Help:      "Duration of template rendering including the repository fetch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	usageRecordFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "template_engine",
			Name:      "usage_record_failures_total",
			Help:      "Usage-tracking writes that failed after a successful render.",
		},
	)

	approvalProviderRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "template_engine",
			Name:      "approval_provider_request_duration_seconds",
			Help:      "Duration of approval-provider calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name", "operation"},
	)

	syncedTemplatesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "template_engine",
			Name:      "synced_templates_total",
			Help:      "Templates reconciled against the approval provider.",
		},
		[]string{"result"}, // imported, updated, unchanged
	)
)
