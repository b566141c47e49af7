package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ib_graph_operations_total",
			Help: "Total number of graph backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	r.GraphOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ib_graph_operation_duration_seconds",
			Help:    "Graph backend operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	r.BatchChunksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ib_graph_batch_chunks_total",
			Help: "Total number of batch chunks flushed to the store",
		},
		[]string{"backend", "entity"},
	)

	r.TraversalNodesReturned = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ib_graph_traversal_nodes_returned",
			Help:    "Number of nodes returned per traversal",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"backend"},
	)
}
