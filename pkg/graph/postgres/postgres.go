// Package postgres implements the graph backend contract over an
// adjacency-style relational schema, using iterative frontier expansion for
// traversal and path finding. It is the default backend and needs no
// infrastructure beyond a reachable PostgreSQL instance.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
)

const backendName = "postgres"

var _ graph.Backend = (*Backend)(nil)

// Config configures the relational backend.
type Config struct {
	// DSN is a pgx connection string or URL.
	DSN string `yaml:"dsn" validate:"required"`
	// Schema is the PostgreSQL schema holding the nodes and edges tables.
	Schema string `yaml:"schema"`
	// MaxConns bounds the connection pool. Zero keeps the pgx default.
	MaxConns int32 `yaml:"max_conns"`
	// MinConns keeps warm connections in the pool.
	MinConns int32 `yaml:"min_conns"`
}

// Backend is the pgx-backed implementation of graph.Backend.
type Backend struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// New creates an unconnected relational backend. Call Connect before use.
func New(cfg Config, logger logging.Logger, reg *metrics.Registry) *Backend {
	if cfg.Schema == "" {
		cfg.Schema = "graph"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Backend{
		cfg:     cfg,
		logger:  logger.With(logging.Backend(backendName)),
		metrics: reg,
	}
}

// Connect establishes the connection pool, verifies reachability, and
// applies the schema migration. An unreachable store is a connectivity
// error, never a silent degradation.
func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(b.cfg.DSN)
	if err != nil {
		return graph.ConfigurationError("Connect", fmt.Errorf("parse DSN: %w", err))
	}
	if b.cfg.MaxConns > 0 {
		poolCfg.MaxConns = b.cfg.MaxConns
	}
	if b.cfg.MinConns > 0 {
		poolCfg.MinConns = b.cfg.MinConns
	}
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return graph.ConnectivityError("Connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return graph.ConnectivityError("Connect", fmt.Errorf("%w: %v", graph.ErrUnreachable, err))
	}
	if err := migrate(ctx, pool, b.cfg.Schema); err != nil {
		pool.Close()
		return graph.ConnectivityError("Connect", fmt.Errorf("migration failed: %w", err))
	}

	b.pool = pool
	b.logger.Info("connected", logging.String("schema", b.cfg.Schema))
	return nil
}

// Disconnect closes the connection pool.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
		b.logger.Info("disconnected")
	}
	return nil
}

// IsConnected reports whether the pool is open and the store answers pings.
func (b *Backend) IsConnected(ctx context.Context) bool {
	b.mu.RLock()
	pool := b.pool
	b.mu.RUnlock()
	if pool == nil {
		return false
	}
	return pool.Ping(ctx) == nil
}

// conn returns the live pool or a connectivity error.
func (b *Backend) conn() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pool == nil {
		return nil, graph.ConnectivityError("conn", graph.ErrNotConnected)
	}
	return b.pool, nil
}

// table prefixes a table name with the configured schema.
func (b *Backend) table(name string) string {
	return b.cfg.Schema + "." + name
}

// ExecuteNativeQuery runs raw SQL against the store. Parameters use pgx
// named-argument syntax (@name). The result shape is backend-specific; this
// is a non-portable escape hatch.
func (b *Backend) ExecuteNativeQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var rows pgx.Rows
	if len(params) > 0 {
		rows, err = pool.Query(ctx, query, pgx.NamedArgs(params))
	} else {
		rows, err = pool.Query(ctx, query)
	}
	b.metrics.RecordGraphOperation(backendName, "ExecuteNativeQuery", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("ExecuteNativeQuery", "backend", "", graph.KindInternal, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, graph.NewError("ExecuteNativeQuery", "backend", "", graph.KindInternal, err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
