// Package factory constructs a concrete graph backend from a type selector
// and backend-specific configuration. An unrecognized selector fails at
// construction time, never on first use.
package factory

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/cypher"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/postgres"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
)

// BackendType selects a storage engine implementation.
type BackendType string

const (
	// TypePostgres is the relational recursive-query backend, the default.
	TypePostgres BackendType = "postgres"
	// TypeCypher is the native graph-store backend for heavy traversal
	// workloads.
	TypeCypher BackendType = "cypher"
)

// Config carries the type selector plus per-backend configuration. Only the
// section matching Type is consulted.
type Config struct {
	Type     BackendType      `yaml:"type"`
	Postgres *postgres.Config `yaml:"postgres,omitempty"`
	Cypher   *cypher.Config   `yaml:"cypher,omitempty"`
}

var validate = validator.New()

// New constructs the backend matching cfg.Type. The returned backend is not
// yet connected; call Connect before use.
func New(cfg Config, logger logging.Logger, reg *metrics.Registry) (graph.Backend, error) {
	switch cfg.Type {
	case TypePostgres:
		if cfg.Postgres == nil {
			return nil, graph.ConfigurationError("NewBackend", fmt.Errorf("postgres configuration missing"))
		}
		if err := validate.Struct(cfg.Postgres); err != nil {
			return nil, graph.ConfigurationError("NewBackend", err)
		}
		return postgres.New(*cfg.Postgres, logger, reg), nil

	case TypeCypher:
		if cfg.Cypher == nil {
			return nil, graph.ConfigurationError("NewBackend", fmt.Errorf("cypher configuration missing"))
		}
		if err := validate.Struct(cfg.Cypher); err != nil {
			return nil, graph.ConfigurationError("NewBackend", err)
		}
		return cypher.New(*cfg.Cypher, logger, reg), nil

	default:
		return nil, graph.ConfigurationError("NewBackend",
			fmt.Errorf("%w: %q", graph.ErrUnknownBackend, cfg.Type))
	}
}
