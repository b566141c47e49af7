package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDetectionMetrics() {
	r.PatternMatchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ib_detection_matches_total",
			Help: "Total number of accepted pattern matches",
		},
		[]string{"domain", "category"},
	)

	r.DetectionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ib_detection_duration_seconds",
			Help:    "Full document detection latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	r.FactorApplied = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ib_detection_factor_applications_total",
			Help: "Confidence factor applications by outcome",
		},
		[]string{"factor", "outcome"},
	)

	r.FactorSkippedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ib_detection_factor_skipped_total",
			Help: "Confidence factors skipped because their detector failed",
		},
	)

	r.DocumentsProcessed = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ib_detection_documents_processed_total",
			Help: "Total number of documents processed",
		},
	)

	r.RegisteredPatterns = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ib_detection_registered_patterns",
			Help: "Number of patterns currently registered",
		},
	)
}
