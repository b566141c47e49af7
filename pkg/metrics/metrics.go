// Package metrics exposes prometheus instrumentation for the graph backends
// and the pattern-detection pipeline. All record helpers are nil-safe so
// components can run without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application.
type Registry struct {
	registry *prometheus.Registry

	// Graph backend metrics
	GraphOperationsTotal   *prometheus.CounterVec
	GraphOperationDuration *prometheus.HistogramVec
	BatchChunksTotal       *prometheus.CounterVec
	TraversalNodesReturned *prometheus.HistogramVec

	// Detection metrics
	PatternMatchesTotal   *prometheus.CounterVec
	DetectionDuration     prometheus.Histogram
	FactorApplied         *prometheus.CounterVec
	FactorSkippedTotal    prometheus.Counter
	DocumentsProcessed    prometheus.Counter
	RegisteredPatterns    prometheus.Gauge
}

// NewRegistry creates a registry with all collectors registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initGraphMetrics()
	r.initDetectionMetrics()
	return r
}

// Gatherer returns the underlying prometheus gatherer for scrape handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordGraphOperation records one backend operation with its outcome.
func (r *Registry) RecordGraphOperation(backend, op string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.GraphOperationsTotal.WithLabelValues(backend, op, status).Inc()
	r.GraphOperationDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordBatchChunk records one flushed batch chunk.
func (r *Registry) RecordBatchChunk(backend, entity string) {
	if r == nil {
		return
	}
	r.BatchChunksTotal.WithLabelValues(backend, entity).Inc()
}

// RecordTraversal records the node count returned by a traversal.
func (r *Registry) RecordTraversal(backend string, nodes int) {
	if r == nil {
		return
	}
	r.TraversalNodesReturned.WithLabelValues(backend).Observe(float64(nodes))
}

// RecordMatch records n pattern matches for one domain and category.
func (r *Registry) RecordMatch(domain, category string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.PatternMatchesTotal.WithLabelValues(domain, category).Add(float64(n))
}

// RecordDetection records one full detection run over a document.
func (r *Registry) RecordDetection(duration time.Duration) {
	if r == nil {
		return
	}
	r.DetectionDuration.Observe(duration.Seconds())
	r.DocumentsProcessed.Inc()
}

// RecordFactor records one confidence-factor application.
func (r *Registry) RecordFactor(name string, fired bool) {
	if r == nil {
		return
	}
	outcome := "zero"
	if fired {
		outcome = "fired"
	}
	r.FactorApplied.WithLabelValues(name, outcome).Inc()
}

// RecordFactorSkipped records a factor skipped because its detector failed.
func (r *Registry) RecordFactorSkipped() {
	if r == nil {
		return
	}
	r.FactorSkippedTotal.Inc()
}

// SetRegisteredPatterns records the current registry size.
func (r *Registry) SetRegisteredPatterns(n int) {
	if r == nil {
		return
	}
	r.RegisteredPatterns.Set(float64(n))
}
