package cypher

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
)

// CreateEdge creates a single relationship between two existing nodes.
func (b *Backend) CreateEdge(ctx context.Context, spec graph.EdgeSpec) (*graph.Edge, error) {
	spec, err := graph.NormalizeEdgeSpec(spec)
	if err != nil {
		return nil, err
	}
	if err := checkSymbols("CreateEdge", []string{spec.Type}); err != nil {
		return nil, err
	}
	props, err := encodeProperties(spec.Properties)
	if err != nil {
		return nil, graph.NewError("CreateEdge", "edge", spec.ID, graph.KindInternal, err)
	}

	query := `MATCH (a {id: $source}), (b {id: $target})
		WHERE a.retired_at IS NULL AND b.retired_at IS NULL
		MERGE (a)-[r:` + spec.Type + ` {id: $id}]->(b)
		SET r.source_id = $source, r.target_id = $target,
		    r.props = $props, r.weight = $weight, r.confidence = $confidence,
		    r.created_at = coalesce(r.created_at, $now),
		    r.retired_at = NULL
		RETURN r`
	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeWrite, query, map[string]any{
		"id":         spec.ID,
		"source":     spec.SourceID,
		"target":     spec.TargetID,
		"props":      props,
		"weight":     *spec.Weight,
		"confidence": *spec.Confidence,
		"now":        formatTime(time.Now()),
	})
	b.metrics.RecordGraphOperation(backendName, "CreateEdge", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("CreateEdge", "edge", spec.ID, graph.KindInternal, err)
	}
	if len(records) == 0 {
		return nil, graph.ValidationError("CreateEdge", "edge", spec.ID, errMissingEndpoint)
	}
	value, _ := records[0].Get("r")
	return edgeFromValue(value)
}

// BatchCreateEdges creates relationships in order, grouped by identical
// type so each group runs as one UNWIND statement, chunked at
// graph.BatchChunkSize rows.
func (b *Backend) BatchCreateEdges(ctx context.Context, specs []graph.EdgeSpec) ([]*graph.Edge, error) {
	normalized := make([]graph.EdgeSpec, len(specs))
	for i, spec := range specs {
		s, err := graph.NormalizeEdgeSpec(spec)
		if err != nil {
			return nil, err
		}
		if err := checkSymbols("BatchCreateEdges", []string{s.Type}); err != nil {
			return nil, err
		}
		normalized[i] = s
	}

	groups, order := groupEdgeSpecs(normalized)
	created := make(map[string]*graph.Edge, len(normalized))
	now := formatTime(time.Now())

	start := time.Now()
	for _, edgeType := range order {
		group := groups[edgeType]
		query := `UNWIND $rows AS row
			MATCH (a {id: row.source}), (b {id: row.target})
			WHERE a.retired_at IS NULL AND b.retired_at IS NULL
			MERGE (a)-[r:` + edgeType + ` {id: row.id}]->(b)
			SET r.source_id = row.source, r.target_id = row.target,
			    r.props = row.props, r.weight = row.weight, r.confidence = row.confidence,
			    r.created_at = coalesce(r.created_at, $now),
			    r.retired_at = NULL
			RETURN r`
		for offset := 0; offset < len(group); offset += graph.BatchChunkSize {
			end := min(offset+graph.BatchChunkSize, len(group))
			rows := make([]map[string]any, 0, end-offset)
			for _, spec := range group[offset:end] {
				props, err := encodeProperties(spec.Properties)
				if err != nil {
					return nil, graph.NewError("BatchCreateEdges", "edge", spec.ID, graph.KindInternal, err)
				}
				rows = append(rows, map[string]any{
					"id":         spec.ID,
					"source":     spec.SourceID,
					"target":     spec.TargetID,
					"props":      props,
					"weight":     *spec.Weight,
					"confidence": *spec.Confidence,
				})
			}
			records, err := b.run(ctx, neo4j.AccessModeWrite, query, map[string]any{"rows": rows, "now": now})
			if err != nil {
				b.metrics.RecordGraphOperation(backendName, "BatchCreateEdges", time.Since(start), err)
				return nil, graph.NewError("BatchCreateEdges", "edge", "", graph.KindInternal, err)
			}
			for _, record := range records {
				value, _ := record.Get("r")
				edge, err := edgeFromValue(value)
				if err != nil {
					return nil, graph.NewError("BatchCreateEdges", "edge", "", graph.KindInternal, err)
				}
				created[edge.ID] = edge
			}
			b.metrics.RecordBatchChunk(backendName, "edge")
		}
	}
	b.metrics.RecordGraphOperation(backendName, "BatchCreateEdges", time.Since(start), nil)

	results := make([]*graph.Edge, 0, len(normalized))
	for _, spec := range normalized {
		edge, ok := created[spec.ID]
		if !ok {
			return nil, graph.ValidationError("BatchCreateEdges", "edge", spec.ID, errMissingEndpoint)
		}
		results = append(results, edge)
	}
	b.logger.Debug("batch edges created", logging.Count(len(results)))
	return results, nil
}

func groupEdgeSpecs(specs []graph.EdgeSpec) (map[string][]graph.EdgeSpec, []string) {
	groups := make(map[string][]graph.EdgeSpec)
	var order []string
	for _, spec := range specs {
		if _, ok := groups[spec.Type]; !ok {
			order = append(order, spec.Type)
		}
		groups[spec.Type] = append(groups[spec.Type], spec)
	}
	return groups, order
}

// GetEdge returns the edge, or (nil, nil) when absent or retired.
func (b *Backend) GetEdge(ctx context.Context, id string) (*graph.Edge, error) {
	query := `MATCH ()-[r {id: $id}]->() WHERE r.retired_at IS NULL RETURN r LIMIT 1`
	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": id})
	b.metrics.RecordGraphOperation(backendName, "GetEdge", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("GetEdge", "edge", id, graph.KindInternal, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	value, _ := records[0].Get("r")
	return edgeFromValue(value)
}

// UpdateEdge merges or replaces the edge's property map.
func (b *Backend) UpdateEdge(ctx context.Context, id string, props map[string]any, mode graph.UpdateMode) (*graph.Edge, error) {
	session, err := b.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	start := time.Now()
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		next := props
		if mode == graph.UpdateMerge {
			res, err := tx.Run(ctx, `MATCH ()-[r {id: $id}]->() WHERE r.retired_at IS NULL RETURN r.props AS props`,
				map[string]any{"id": id})
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, nil
			}
			raw, _ := record.Get("props")
			current, err := decodeProperties(raw)
			if err != nil {
				return nil, err
			}
			for k, v := range props {
				current[k] = v
			}
			next = current
		}

		encoded, err := encodeProperties(next)
		if err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx, `MATCH ()-[r {id: $id}]->() WHERE r.retired_at IS NULL
			SET r.props = $props
			RETURN r`, map[string]any{"id": id, "props": encoded})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, nil
		}
		value, _ := record.Get("r")
		return edgeFromValue(value)
	})
	b.metrics.RecordGraphOperation(backendName, "UpdateEdge", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("UpdateEdge", "edge", id, graph.KindInternal, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*graph.Edge), nil
}

// DeleteEdge soft-deletes an edge.
func (b *Backend) DeleteEdge(ctx context.Context, id string) error {
	query := `MATCH ()-[r {id: $id}]->() WHERE r.retired_at IS NULL SET r.retired_at = $now`
	start := time.Now()
	_, err := b.run(ctx, neo4j.AccessModeWrite, query, map[string]any{
		"id":  id,
		"now": formatTime(time.Now()),
	})
	b.metrics.RecordGraphOperation(backendName, "DeleteEdge", time.Since(start), err)
	if err != nil {
		return graph.NewError("DeleteEdge", "edge", id, graph.KindInternal, err)
	}
	return nil
}

// FindEdges returns live edges matching the filter. Property filters are
// applied client-side.
func (b *Backend) FindEdges(ctx context.Context, filter graph.EdgeFilter) ([]*graph.Edge, error) {
	if err := checkSymbols("FindEdges", filter.Types); err != nil {
		return nil, err
	}
	query := `MATCH ()-[r` + typeFragment(filter.Types) + `]->() WHERE r.retired_at IS NULL RETURN r ORDER BY r.id`
	records, err := b.run(ctx, neo4j.AccessModeRead, query, nil)
	if err != nil {
		return nil, graph.NewError("FindEdges", "edge", "", graph.KindInternal, err)
	}

	var edges []*graph.Edge
	for _, record := range records {
		value, _ := record.Get("r")
		edge, err := edgeFromValue(value)
		if err != nil {
			return nil, graph.NewError("FindEdges", "edge", "", graph.KindInternal, err)
		}
		if !containsProps(edge.Properties, filter.Properties) {
			continue
		}
		edges = append(edges, edge)
		if filter.Limit > 0 && len(edges) >= filter.Limit {
			break
		}
	}
	return edges, nil
}

// CountEdges returns the number of live edges matching the filter.
func (b *Backend) CountEdges(ctx context.Context, filter graph.EdgeFilter) (int64, error) {
	if len(filter.Properties) > 0 {
		filter.Limit = 0
		edges, err := b.FindEdges(ctx, filter)
		if err != nil {
			return 0, err
		}
		return int64(len(edges)), nil
	}
	if err := checkSymbols("CountEdges", filter.Types); err != nil {
		return 0, err
	}
	query := `MATCH ()-[r` + typeFragment(filter.Types) + `]->() WHERE r.retired_at IS NULL RETURN count(r) AS count`
	records, err := b.run(ctx, neo4j.AccessModeRead, query, nil)
	if err != nil {
		return 0, graph.NewError("CountEdges", "edge", "", graph.KindInternal, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	value, _ := records[0].Get("count")
	count, _ := value.(int64)
	return count, nil
}
