package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrate creates the schema and tables when they do not exist. Idempotent,
// so every Connect may run it.
func migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.nodes (
			id          TEXT PRIMARY KEY,
			labels      TEXT[] NOT NULL,
			properties  JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			retired_at  TIMESTAMPTZ
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.edges (
			id          TEXT PRIMARY KEY,
			source_id   TEXT NOT NULL REFERENCES %s.nodes(id),
			target_id   TEXT NOT NULL REFERENCES %s.nodes(id),
			edge_type   TEXT NOT NULL,
			properties  JSONB NOT NULL DEFAULT '{}'::jsonb,
			weight      DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			confidence  DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			retired_at  TIMESTAMPTZ,
			CONSTRAINT no_self_loop CHECK (source_id <> target_id),
			CONSTRAINT weight_range CHECK (weight >= 0 AND weight <= 1),
			CONSTRAINT confidence_range CHECK (confidence >= 0 AND confidence <= 1)
		)`, schema, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS nodes_labels_idx ON %s.nodes USING GIN (labels)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS nodes_properties_idx ON %s.nodes USING GIN (properties)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS edges_source_idx ON %s.edges (source_id) WHERE retired_at IS NULL`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS edges_target_idx ON %s.edges (target_id) WHERE retired_at IS NULL`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS edges_type_idx ON %s.edges (edge_type)`, schema),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
