package cypher

import (
	"context"
	"reflect"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
)

// CreateNode creates a single node. Creation with an existing identifier
// revives and overwrites the stored record, keeping retries idempotent.
// The merge keys on id alone, so an id never maps to more than one node;
// labels are replaced, not extended, to match the relational backend's
// overwrite semantics.
func (b *Backend) CreateNode(ctx context.Context, spec graph.NodeSpec) (*graph.Node, error) {
	spec, err := graph.NormalizeNodeSpec(spec)
	if err != nil {
		return nil, err
	}
	if err := checkSymbols("CreateNode", spec.Labels); err != nil {
		return nil, err
	}
	props, err := encodeProperties(spec.Properties)
	if err != nil {
		return nil, graph.NewError("CreateNode", "node", spec.ID, graph.KindInternal, err)
	}

	session, err := b.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	start := time.Now()
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n {id: $id}) RETURN labels(n) AS labels`,
			map[string]any{"id": spec.ID})
		if err != nil {
			return nil, err
		}
		existing, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		query := `MERGE (n {id: $id})
			SET n` + labelFragment(spec.Labels) + `,
			    n.props = $props, n.name = $name,
			    n.updated_at = $now,
			    n.created_at = coalesce(n.created_at, $now),
			    n.retired_at = NULL`
		if stale := staleLabels(existing, spec.Labels); len(stale) > 0 {
			query += "\n\t\t\tREMOVE n" + labelFragment(stale)
		}
		query += "\n\t\t\tRETURN n"

		res, err = tx.Run(ctx, query, map[string]any{
			"id":    spec.ID,
			"props": props,
			"name":  nameOf(spec.Properties),
			"now":   formatTime(time.Now()),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, errNoRecord
		}
		value, _ := record.Get("n")
		return nodeFromValue(value)
	})
	b.metrics.RecordGraphOperation(backendName, "CreateNode", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("CreateNode", "node", spec.ID, graph.KindInternal, err)
	}
	return result.(*graph.Node), nil
}

// BatchCreateNodes creates nodes in order. Records are grouped by identical
// label combination so each group runs as a single UNWIND statement, then
// chunked at graph.BatchChunkSize rows per request.
func (b *Backend) BatchCreateNodes(ctx context.Context, specs []graph.NodeSpec) ([]*graph.Node, error) {
	normalized := make([]graph.NodeSpec, len(specs))
	for i, spec := range specs {
		s, err := graph.NormalizeNodeSpec(spec)
		if err != nil {
			return nil, err
		}
		if err := checkSymbols("BatchCreateNodes", s.Labels); err != nil {
			return nil, err
		}
		normalized[i] = s
	}

	groups, order := groupNodeSpecs(normalized)
	created := make(map[string]*graph.Node, len(normalized))
	now := formatTime(time.Now())

	start := time.Now()
	for _, key := range order {
		group := groups[key]
		stale, err := b.groupStaleLabels(ctx, group)
		if err != nil {
			return nil, graph.NewError("BatchCreateNodes", "node", "", graph.KindInternal, err)
		}
		query := `UNWIND $rows AS row
			MERGE (n {id: row.id})
			SET n` + labelFragment(group[0].Labels) + `,
			    n.props = row.props, n.name = row.name,
			    n.updated_at = $now,
			    n.created_at = coalesce(n.created_at, $now),
			    n.retired_at = NULL`
		if len(stale) > 0 {
			query += "\n\t\t\tREMOVE n" + labelFragment(stale)
		}
		query += "\n\t\t\tRETURN n"
		for offset := 0; offset < len(group); offset += graph.BatchChunkSize {
			end := min(offset+graph.BatchChunkSize, len(group))
			rows := make([]map[string]any, 0, end-offset)
			for _, spec := range group[offset:end] {
				props, err := encodeProperties(spec.Properties)
				if err != nil {
					return nil, graph.NewError("BatchCreateNodes", "node", spec.ID, graph.KindInternal, err)
				}
				rows = append(rows, map[string]any{
					"id":    spec.ID,
					"props": props,
					"name":  nameOf(spec.Properties),
				})
			}
			records, err := b.run(ctx, neo4j.AccessModeWrite, query, map[string]any{"rows": rows, "now": now})
			if err != nil {
				b.metrics.RecordGraphOperation(backendName, "BatchCreateNodes", time.Since(start), err)
				return nil, graph.NewError("BatchCreateNodes", "node", "", graph.KindInternal, err)
			}
			for _, record := range records {
				value, _ := record.Get("n")
				node, err := nodeFromValue(value)
				if err != nil {
					return nil, graph.NewError("BatchCreateNodes", "node", "", graph.KindInternal, err)
				}
				created[node.ID] = node
			}
			b.metrics.RecordBatchChunk(backendName, "node")
		}
	}
	b.metrics.RecordGraphOperation(backendName, "BatchCreateNodes", time.Since(start), nil)

	// Results preserve input order regardless of label grouping.
	results := make([]*graph.Node, 0, len(normalized))
	for _, spec := range normalized {
		node, ok := created[spec.ID]
		if !ok {
			return nil, graph.NewError("BatchCreateNodes", "node", spec.ID, graph.KindInternal, errNoRecord)
		}
		results = append(results, node)
	}
	b.logger.Debug("batch nodes created", logging.Count(len(results)))
	return results, nil
}

// staleLabels filters the collected label lists down to labels absent from
// want, deduplicated and sorted. Only symbol-safe labels are returned
// because the REMOVE clause interpolates them.
func staleLabels(records []*neo4j.Record, want []string) []string {
	keep := make(map[string]struct{}, len(want))
	for _, l := range want {
		keep[l] = struct{}{}
	}
	seen := make(map[string]struct{})
	var stale []string
	for _, record := range records {
		value, _ := record.Get("labels")
		for _, l := range toStringSlice(value) {
			if _, ok := keep[l]; ok {
				continue
			}
			if _, dup := seen[l]; dup || !symbolPattern.MatchString(l) {
				continue
			}
			seen[l] = struct{}{}
			stale = append(stale, l)
		}
	}
	sort.Strings(stale)
	return stale
}

// groupStaleLabels collects labels already present on the group's ids that
// the group's label set does not carry. Every node in the group ends up
// with exactly the group's labels, so removing the union from all of them
// is safe.
func (b *Backend) groupStaleLabels(ctx context.Context, group []graph.NodeSpec) ([]string, error) {
	ids := make([]string, 0, len(group))
	for _, spec := range group {
		ids = append(ids, spec.ID)
	}
	records, err := b.run(ctx, neo4j.AccessModeRead,
		`MATCH (n) WHERE n.id IN $ids RETURN labels(n) AS labels`,
		map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	return staleLabels(records, group[0].Labels), nil
}

// groupNodeSpecs partitions specs by identical label combination, keeping
// first-seen group order for determinism.
func groupNodeSpecs(specs []graph.NodeSpec) (map[string][]graph.NodeSpec, []string) {
	groups := make(map[string][]graph.NodeSpec)
	var order []string
	for _, spec := range specs {
		key := labelFragment(spec.Labels)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], spec)
	}
	return groups, order
}

// GetNode returns the node, or (nil, nil) when absent or retired.
func (b *Backend) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	query := `MATCH (n {id: $id}) WHERE n.retired_at IS NULL RETURN n LIMIT 1`
	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": id})
	b.metrics.RecordGraphOperation(backendName, "GetNode", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("GetNode", "node", id, graph.KindInternal, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	value, _ := records[0].Get("n")
	return nodeFromValue(value)
}

// UpdateNode merges or replaces the node's property map. The JSON property
// blob cannot be merged in the store, so merge mode reads, merges, and
// writes within one transaction.
func (b *Backend) UpdateNode(ctx context.Context, id string, props map[string]any, mode graph.UpdateMode) (*graph.Node, error) {
	session, err := b.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	start := time.Now()
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		next := props
		if mode == graph.UpdateMerge {
			current, err := readNodeProps(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, nil
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
		res, err := tx.Run(ctx, `MATCH (n {id: $id}) WHERE n.retired_at IS NULL
			SET n.props = $props, n.name = $name, n.updated_at = $now
			RETURN n`, map[string]any{
			"id":    id,
			"props": encoded,
			"name":  nameOf(next),
			"now":   formatTime(time.Now()),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, nil // no live node with this id
		}
		value, _ := record.Get("n")
		return nodeFromValue(value)
	})
	b.metrics.RecordGraphOperation(backendName, "UpdateNode", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("UpdateNode", "node", id, graph.KindInternal, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*graph.Node), nil
}

func readNodeProps(ctx context.Context, tx neo4j.ManagedTransaction, id string) (map[string]any, error) {
	res, err := tx.Run(ctx, `MATCH (n {id: $id}) WHERE n.retired_at IS NULL RETURN n.props AS props`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return nil, nil
	}
	raw, _ := record.Get("props")
	return decodeProperties(raw)
}

// DeleteNode soft-deletes a node and retires its incident relationships.
func (b *Backend) DeleteNode(ctx context.Context, id string) error {
	query := `MATCH (n {id: $id}) WHERE n.retired_at IS NULL
		SET n.retired_at = $now
		WITH n
		OPTIONAL MATCH (n)-[r]-()
		WHERE r.retired_at IS NULL
		SET r.retired_at = $now`
	start := time.Now()
	_, err := b.run(ctx, neo4j.AccessModeWrite, query, map[string]any{
		"id":  id,
		"now": formatTime(time.Now()),
	})
	b.metrics.RecordGraphOperation(backendName, "DeleteNode", time.Since(start), err)
	if err != nil {
		return graph.NewError("DeleteNode", "node", id, graph.KindInternal, err)
	}
	return nil
}

// FindNodes returns live nodes matching the filter. Label filters require
// all listed labels. Property filters are applied client-side because the
// property map is stored as one JSON blob.
func (b *Backend) FindNodes(ctx context.Context, filter graph.NodeFilter) ([]*graph.Node, error) {
	if err := checkSymbols("FindNodes", filter.Labels); err != nil {
		return nil, err
	}
	query := `MATCH (n` + labelFragment(filter.Labels) + `) WHERE n.retired_at IS NULL RETURN n ORDER BY n.id`
	records, err := b.run(ctx, neo4j.AccessModeRead, query, nil)
	if err != nil {
		return nil, graph.NewError("FindNodes", "node", "", graph.KindInternal, err)
	}

	var nodes []*graph.Node
	for _, record := range records {
		value, _ := record.Get("n")
		node, err := nodeFromValue(value)
		if err != nil {
			return nil, graph.NewError("FindNodes", "node", "", graph.KindInternal, err)
		}
		if !containsProps(node.Properties, filter.Properties) {
			continue
		}
		nodes = append(nodes, node)
		if filter.Limit > 0 && len(nodes) >= filter.Limit {
			break
		}
	}
	return nodes, nil
}

// CountNodes returns the number of live nodes matching the filter.
func (b *Backend) CountNodes(ctx context.Context, filter graph.NodeFilter) (int64, error) {
	if len(filter.Properties) > 0 {
		filter.Limit = 0
		nodes, err := b.FindNodes(ctx, filter)
		if err != nil {
			return 0, err
		}
		return int64(len(nodes)), nil
	}
	if err := checkSymbols("CountNodes", filter.Labels); err != nil {
		return 0, err
	}
	query := `MATCH (n` + labelFragment(filter.Labels) + `) WHERE n.retired_at IS NULL RETURN count(n) AS count`
	records, err := b.run(ctx, neo4j.AccessModeRead, query, nil)
	if err != nil {
		return 0, graph.NewError("CountNodes", "node", "", graph.KindInternal, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	value, _ := records[0].Get("count")
	count, _ := value.(int64)
	return count, nil
}

// containsProps reports whether props contains every filter entry.
func containsProps(props, filter map[string]any) bool {
	for k, v := range filter {
		actual, ok := props[k]
		if !ok || !reflect.DeepEqual(actual, v) {
			return false
		}
	}
	return true
}
