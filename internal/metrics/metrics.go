// Package metrics holds the Prometheus collectors of the PCF service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trace computation
	TraceComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_trace_computations_total",
			Help: "Emission trace computations by outcome",
		},
		[]string{"outcome"},
	)

	TraceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pcf_trace_duration_seconds",
			Help:    "Time taken to load and aggregate a product emission trace",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	TraceNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pcf_trace_nodes",
			Help:    "Number of nodes in a computed emission trace",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Cross-supplier gate
	VisibilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_visibility_decisions_total",
			Help: "Visibility gate decisions for BOM line items",
		},
		[]string{"visibility"},
	)

	SharingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_sharing_transitions_total",
			Help: "Sharing request status transitions",
		},
		[]string{"status"},
	)

	// BOM writes
	LineItemRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_line_item_rejections_total",
			Help: "BOM line items rejected by the graph guard",
		},
		[]string{"reason"},
	)

	// Reference data
	ReferenceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_reference_cache_lookups_total",
			Help: "Reference table list cache lookups",
		},
		[]string{"result"},
	)

	ReferenceRowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_reference_rows_imported_total",
			Help: "Reference factor rows processed by imports",
		},
		[]string{"format", "result"},
	)
)
