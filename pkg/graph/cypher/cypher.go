// Package cypher implements the graph backend contract on a native graph
// store speaking Cypher, using variable-length relationship patterns for
// traversal and the store's shortestPath primitive for reachability. It is
// the optional backend for heavy traversal workloads and must match the
// relational backend's semantics for cycle safety, depth bounding, and
// no-path results.
package cypher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
)

const backendName = "cypher"

var _ graph.Backend = (*Backend)(nil)

// Config configures the native graph-store backend.
type Config struct {
	// URI is the bolt/neo4j endpoint address.
	URI string `yaml:"uri" validate:"required"`
	// Username and Password authenticate against the store.
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	// Database selects the database within the store. Empty uses the
	// server default.
	Database string `yaml:"database"`
}

// Backend is the Cypher-speaking implementation of graph.Backend.
type Backend struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	mu     sync.RWMutex
	driver neo4j.DriverWithContext
}

// New creates an unconnected native backend. Call Connect before use.
func New(cfg Config, logger logging.Logger, reg *metrics.Registry) *Backend {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Backend{
		cfg:     cfg,
		logger:  logger.With(logging.Backend(backendName)),
		metrics: reg,
	}
}

// Connect creates the driver and verifies the store is reachable.
func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.driver != nil {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(b.cfg.URI, neo4j.BasicAuth(b.cfg.Username, b.cfg.Password, ""))
	if err != nil {
		return graph.ConfigurationError("Connect", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return graph.ConnectivityError("Connect", fmt.Errorf("%w: %v", graph.ErrUnreachable, err))
	}

	b.driver = driver
	b.logger.Info("connected", logging.String("uri", b.cfg.URI))
	return nil
}

// Disconnect closes the driver.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.driver != nil {
		err := b.driver.Close(ctx)
		b.driver = nil
		b.logger.Info("disconnected")
		return err
	}
	return nil
}

// IsConnected reports whether the driver answers a connectivity check.
func (b *Backend) IsConnected(ctx context.Context) bool {
	b.mu.RLock()
	driver := b.driver
	b.mu.RUnlock()
	if driver == nil {
		return false
	}
	return driver.VerifyConnectivity(ctx) == nil
}

// session opens a session against the configured database.
func (b *Backend) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	b.mu.RLock()
	driver := b.driver
	b.mu.RUnlock()
	if driver == nil {
		return nil, graph.ConnectivityError("session", graph.ErrNotConnected)
	}
	return driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: b.cfg.Database,
	}), nil
}

// run executes one Cypher statement in its own session and collects all
// result records.
func (b *Backend) run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error) {
	session, err := b.session(ctx, mode)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

// ExecuteNativeQuery runs raw Cypher against the store. The result shape is
// backend-specific; this is a non-portable escape hatch.
func (b *Backend) ExecuteNativeQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeWrite, query, params)
	b.metrics.RecordGraphOperation(backendName, "ExecuteNativeQuery", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("ExecuteNativeQuery", "backend", "", graph.KindInternal, err)
	}

	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row[key] = value
		}
		out = append(out, row)
	}
	return out, nil
}
