package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
)

const nodeColumns = "id, labels, properties, created_at, updated_at, retired_at"

// scanNode reads one node row.
func scanNode(row pgx.Row) (*graph.Node, error) {
	var n graph.Node
	err := row.Scan(&n.ID, &n.Labels, &n.Properties, &n.CreatedAt, &n.UpdatedAt, &n.RetiredAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNode creates a single node, generating an identifier when none is
// supplied. Creation with an existing identifier revives and overwrites the
// stored record, which keeps retries idempotent.
func (b *Backend) CreateNode(ctx context.Context, spec graph.NodeSpec) (*graph.Node, error) {
	spec, err := graph.NormalizeNodeSpec(spec)
	if err != nil {
		return nil, err
	}
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query := fmt.Sprintf(`INSERT INTO %s (id, labels, properties)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET labels = EXCLUDED.labels, properties = EXCLUDED.properties,
		    updated_at = now(), retired_at = NULL
		RETURNING %s`, b.table("nodes"), nodeColumns)
	node, err := scanNode(pool.QueryRow(ctx, query, spec.ID, spec.Labels, properties(spec.Properties)))
	b.metrics.RecordGraphOperation(backendName, "CreateNode", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("CreateNode", "node", spec.ID, graph.KindInternal, err)
	}
	return node, nil
}

// BatchCreateNodes creates nodes in order, flushing chunks of at most
// graph.BatchChunkSize records per request. Chunks are independent: an
// earlier chunk stays committed if a later one fails.
func (b *Backend) BatchCreateNodes(ctx context.Context, specs []graph.NodeSpec) ([]*graph.Node, error) {
	normalized := make([]graph.NodeSpec, len(specs))
	for i, spec := range specs {
		s, err := graph.NormalizeNodeSpec(spec)
		if err != nil {
			return nil, err
		}
		normalized[i] = s
	}
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, labels, properties)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET labels = EXCLUDED.labels, properties = EXCLUDED.properties,
		    updated_at = now(), retired_at = NULL
		RETURNING %s`, b.table("nodes"), nodeColumns)

	start := time.Now()
	results := make([]*graph.Node, 0, len(normalized))
	for offset := 0; offset < len(normalized); offset += graph.BatchChunkSize {
		end := min(offset+graph.BatchChunkSize, len(normalized))
		chunk := normalized[offset:end]

		batch := &pgx.Batch{}
		for _, spec := range chunk {
			batch.Queue(query, spec.ID, spec.Labels, properties(spec.Properties))
		}
		br := pool.SendBatch(ctx, batch)
		chunkNodes, err := collectBatchNodes(br, len(chunk))
		if err != nil {
			b.metrics.RecordGraphOperation(backendName, "BatchCreateNodes", time.Since(start), err)
			return nil, graph.NewError("BatchCreateNodes", "node", "", graph.KindInternal, err)
		}
		results = append(results, chunkNodes...)
		b.metrics.RecordBatchChunk(backendName, "node")
	}
	b.metrics.RecordGraphOperation(backendName, "BatchCreateNodes", time.Since(start), nil)
	b.logger.Debug("batch nodes created", logging.Count(len(results)))
	return results, nil
}

func collectBatchNodes(br pgx.BatchResults, n int) ([]*graph.Node, error) {
	defer br.Close()
	nodes := make([]*graph.Node, 0, n)
	for i := 0; i < n; i++ {
		node, err := scanNode(br.QueryRow())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// GetNode returns the node, or (nil, nil) when absent or retired.
func (b *Backend) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND retired_at IS NULL`,
		nodeColumns, b.table("nodes"))
	start := time.Now()
	node, err := scanNode(pool.QueryRow(ctx, query, id))
	b.metrics.RecordGraphOperation(backendName, "GetNode", time.Since(start), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graph.NewError("GetNode", "node", id, graph.KindInternal, err)
	}
	return node, nil
}

// UpdateNode merges or replaces the node's property map and returns the
// updated node, or (nil, nil) when the node does not exist.
func (b *Backend) UpdateNode(ctx context.Context, id string, props map[string]any, mode graph.UpdateMode) (*graph.Node, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	var setClause string
	switch mode {
	case graph.UpdateReplace:
		setClause = "properties = $2"
	default:
		setClause = "properties = properties || $2"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now()
		WHERE id = $1 AND retired_at IS NULL
		RETURNING %s`, b.table("nodes"), setClause, nodeColumns)

	start := time.Now()
	node, err := scanNode(pool.QueryRow(ctx, query, id, properties(props)))
	b.metrics.RecordGraphOperation(backendName, "UpdateNode", time.Since(start), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graph.NewError("UpdateNode", "node", id, graph.KindInternal, err)
	}
	return node, nil
}

// DeleteNode soft-deletes a node and retires its incident edges. Deleting a
// missing node is a no-op.
func (b *Backend) DeleteNode(ctx context.Context, id string) error {
	pool, err := b.conn()
	if err != nil {
		return err
	}

	start := time.Now()
	nodeQuery := fmt.Sprintf(`UPDATE %s SET retired_at = now()
		WHERE id = $1 AND retired_at IS NULL`, b.table("nodes"))
	edgeQuery := fmt.Sprintf(`UPDATE %s SET retired_at = now()
		WHERE (source_id = $1 OR target_id = $1) AND retired_at IS NULL`, b.table("edges"))

	if _, err := pool.Exec(ctx, nodeQuery, id); err != nil {
		b.metrics.RecordGraphOperation(backendName, "DeleteNode", time.Since(start), err)
		return graph.NewError("DeleteNode", "node", id, graph.KindInternal, err)
	}
	_, err = pool.Exec(ctx, edgeQuery, id)
	b.metrics.RecordGraphOperation(backendName, "DeleteNode", time.Since(start), err)
	if err != nil {
		return graph.NewError("DeleteNode", "node", id, graph.KindInternal, err)
	}
	return nil
}

// FindNodes returns live nodes matching the filter. Label filters require
// all listed labels; property filters use containment.
func (b *Backend) FindNodes(ctx context.Context, filter graph.NodeFilter) ([]*graph.Node, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	query, args := b.nodeFilterQuery(fmt.Sprintf("SELECT %s FROM %s", nodeColumns, b.table("nodes")), filter, true)
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, graph.NewError("FindNodes", "node", "", graph.KindInternal, err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, graph.NewError("FindNodes", "node", "", graph.KindInternal, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// CountNodes returns the number of live nodes matching the filter.
func (b *Backend) CountNodes(ctx context.Context, filter graph.NodeFilter) (int64, error) {
	pool, err := b.conn()
	if err != nil {
		return 0, err
	}

	filter.Limit = 0
	query, args := b.nodeFilterQuery(fmt.Sprintf("SELECT count(*) FROM %s", b.table("nodes")), filter, false)
	var count int64
	if err := pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, graph.NewError("CountNodes", "node", "", graph.KindInternal, err)
	}
	return count, nil
}

// nodeFilterQuery builds the WHERE clause shared by FindNodes and
// CountNodes.
func (b *Backend) nodeFilterQuery(prefix string, filter graph.NodeFilter, ordered bool) (string, []any) {
	clauses := []string{"retired_at IS NULL"}
	var args []any

	if len(filter.Labels) > 0 {
		args = append(args, filter.Labels)
		clauses = append(clauses, fmt.Sprintf("labels @> $%d", len(args)))
	}
	if len(filter.Properties) > 0 {
		args = append(args, properties(filter.Properties))
		clauses = append(clauses, fmt.Sprintf("properties @> $%d", len(args)))
	}

	query := prefix + " WHERE " + strings.Join(clauses, " AND ")
	if ordered {
		query += " ORDER BY id"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return query, args
}

// properties normalizes a nil map so it encodes as an empty JSON object.
func properties(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
