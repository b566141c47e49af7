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

const edgeColumns = "id, source_id, target_id, edge_type, properties, weight, confidence, created_at, retired_at"

// errMissingEndpoint reports an edge creation whose endpoints do not exist
// or are retired.
var errMissingEndpoint = errors.New("edge endpoints not found")

// scanEdge reads one edge row.
func scanEdge(row pgx.Row) (*graph.Edge, error) {
	var e graph.Edge
	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Type, &e.Properties,
		&e.Weight, &e.Confidence, &e.CreatedAt, &e.RetiredAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEdge creates a single edge. Self-loops, out-of-range weight or
// confidence values, and missing or retired endpoints are rejected as
// validation errors.
func (b *Backend) CreateEdge(ctx context.Context, spec graph.EdgeSpec) (*graph.Edge, error) {
	spec, err := graph.NormalizeEdgeSpec(spec)
	if err != nil {
		return nil, err
	}
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	edge, err := scanEdge(pool.QueryRow(ctx, b.createEdgeQuery(),
		spec.ID, spec.SourceID, spec.TargetID, spec.Type,
		properties(spec.Properties), *spec.Weight, *spec.Confidence))
	b.metrics.RecordGraphOperation(backendName, "CreateEdge", time.Since(start), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, graph.ValidationError("CreateEdge", "edge", spec.ID, errMissingEndpoint)
	}
	if err != nil {
		return nil, graph.NewError("CreateEdge", "edge", spec.ID, graph.KindInternal, err)
	}
	return edge, nil
}

// createEdgeQuery guards the insert on both endpoints being live, so a
// missing or retired endpoint yields no row instead of a constraint
// violation.
func (b *Backend) createEdgeQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (id, source_id, target_id, edge_type, properties, weight, confidence)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM %s WHERE id = $2 AND retired_at IS NULL)
		  AND EXISTS (SELECT 1 FROM %s WHERE id = $3 AND retired_at IS NULL)
		ON CONFLICT (id) DO UPDATE
		SET properties = EXCLUDED.properties, weight = EXCLUDED.weight,
		    confidence = EXCLUDED.confidence, retired_at = NULL
		RETURNING %s`, b.table("edges"), b.table("nodes"), b.table("nodes"), edgeColumns)
}

// BatchCreateEdges creates edges in order, chunked at graph.BatchChunkSize
// records per request.
func (b *Backend) BatchCreateEdges(ctx context.Context, specs []graph.EdgeSpec) ([]*graph.Edge, error) {
	normalized := make([]graph.EdgeSpec, len(specs))
	for i, spec := range specs {
		s, err := graph.NormalizeEdgeSpec(spec)
		if err != nil {
			return nil, err
		}
		normalized[i] = s
	}
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	query := b.createEdgeQuery()

	start := time.Now()
	results := make([]*graph.Edge, 0, len(normalized))
	for offset := 0; offset < len(normalized); offset += graph.BatchChunkSize {
		end := min(offset+graph.BatchChunkSize, len(normalized))
		chunk := normalized[offset:end]

		batch := &pgx.Batch{}
		for _, spec := range chunk {
			batch.Queue(query, spec.ID, spec.SourceID, spec.TargetID, spec.Type,
				properties(spec.Properties), *spec.Weight, *spec.Confidence)
		}
		br := pool.SendBatch(ctx, batch)
		chunkEdges, err := collectBatchEdges(br, chunk)
		if err != nil {
			b.metrics.RecordGraphOperation(backendName, "BatchCreateEdges", time.Since(start), err)
			if graph.IsValidation(err) {
				return nil, err
			}
			return nil, graph.NewError("BatchCreateEdges", "edge", "", graph.KindInternal, err)
		}
		results = append(results, chunkEdges...)
		b.metrics.RecordBatchChunk(backendName, "edge")
	}
	b.metrics.RecordGraphOperation(backendName, "BatchCreateEdges", time.Since(start), nil)
	b.logger.Debug("batch edges created", logging.Count(len(results)))
	return results, nil
}

func collectBatchEdges(br pgx.BatchResults, chunk []graph.EdgeSpec) ([]*graph.Edge, error) {
	defer br.Close()
	edges := make([]*graph.Edge, 0, len(chunk))
	for _, spec := range chunk {
		edge, err := scanEdge(br.QueryRow())
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, graph.ValidationError("BatchCreateEdges", "edge", spec.ID, errMissingEndpoint)
		}
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// GetEdge returns the edge, or (nil, nil) when absent or retired.
func (b *Backend) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND retired_at IS NULL`,
		edgeColumns, b.table("edges"))
	start := time.Now()
	edge, err := scanEdge(pool.QueryRow(ctx, query, id))
	b.metrics.RecordGraphOperation(backendName, "GetEdge", time.Since(start), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graph.NewError("GetEdge", "edge", id, graph.KindInternal, err)
	}
	return edge, nil
}

// UpdateEdge merges or replaces the edge's property map, or returns
// (nil, nil) when the edge does not exist.
func (b *Backend) UpdateEdge(ctx context.Context, id string, props map[string]any, mode graph.UpdateMode) (*graph.Edge, error) {
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
	query := fmt.Sprintf(`UPDATE %s SET %s
		WHERE id = $1 AND retired_at IS NULL
		RETURNING %s`, b.table("edges"), setClause, edgeColumns)

	start := time.Now()
	edge, err := scanEdge(pool.QueryRow(ctx, query, id, properties(props)))
	b.metrics.RecordGraphOperation(backendName, "UpdateEdge", time.Since(start), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, graph.NewError("UpdateEdge", "edge", id, graph.KindInternal, err)
	}
	return edge, nil
}

// DeleteEdge soft-deletes an edge. Deleting a missing edge is a no-op.
func (b *Backend) DeleteEdge(ctx context.Context, id string) error {
	pool, err := b.conn()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET retired_at = now()
		WHERE id = $1 AND retired_at IS NULL`, b.table("edges"))
	start := time.Now()
	_, err = pool.Exec(ctx, query, id)
	b.metrics.RecordGraphOperation(backendName, "DeleteEdge", time.Since(start), err)
	if err != nil {
		return graph.NewError("DeleteEdge", "edge", id, graph.KindInternal, err)
	}
	return nil
}

// FindEdges returns live edges matching the filter.
func (b *Backend) FindEdges(ctx context.Context, filter graph.EdgeFilter) ([]*graph.Edge, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, err
	}

	query, args := b.edgeFilterQuery(fmt.Sprintf("SELECT %s FROM %s", edgeColumns, b.table("edges")), filter, true)
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, graph.NewError("FindEdges", "edge", "", graph.KindInternal, err)
	}
	defer rows.Close()

	var edges []*graph.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, graph.NewError("FindEdges", "edge", "", graph.KindInternal, err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// CountEdges returns the number of live edges matching the filter.
func (b *Backend) CountEdges(ctx context.Context, filter graph.EdgeFilter) (int64, error) {
	pool, err := b.conn()
	if err != nil {
		return 0, err
	}

	filter.Limit = 0
	query, args := b.edgeFilterQuery(fmt.Sprintf("SELECT count(*) FROM %s", b.table("edges")), filter, false)
	var count int64
	if err := pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, graph.NewError("CountEdges", "edge", "", graph.KindInternal, err)
	}
	return count, nil
}

func (b *Backend) edgeFilterQuery(prefix string, filter graph.EdgeFilter, ordered bool) (string, []any) {
	clauses := []string{"retired_at IS NULL"}
	var args []any

	if len(filter.Types) > 0 {
		args = append(args, filter.Types)
		clauses = append(clauses, fmt.Sprintf("edge_type = ANY($%d)", len(args)))
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
