package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/traversal"
)

// edgeSource adapts the relational schema to the traversal core. Each
// Neighbors call is one round trip; retired nodes and edges never appear.
type edgeSource struct {
	b *Backend
}

func (s edgeSource) Neighbors(ctx context.Context, nodeID string, direction graph.Direction, edgeTypes []string) ([]*graph.Edge, error) {
	pool, err := s.b.conn()
	if err != nil {
		return nil, err
	}

	var join, where string
	switch direction {
	case graph.DirectionOutgoing:
		join = "JOIN " + s.b.table("nodes") + " n ON n.id = e.target_id AND n.retired_at IS NULL"
		where = "e.source_id = $1"
	case graph.DirectionIncoming:
		join = "JOIN " + s.b.table("nodes") + " n ON n.id = e.source_id AND n.retired_at IS NULL"
		where = "e.target_id = $1"
	default:
		join = "JOIN " + s.b.table("nodes") + " n ON n.id = CASE WHEN e.source_id = $1 THEN e.target_id ELSE e.source_id END AND n.retired_at IS NULL"
		where = "(e.source_id = $1 OR e.target_id = $1)"
	}

	query := fmt.Sprintf(`SELECT e.id, e.source_id, e.target_id, e.edge_type, e.properties,
			e.weight, e.confidence, e.created_at, e.retired_at
		FROM %s e %s
		WHERE %s AND e.retired_at IS NULL`, s.b.table("edges"), join, where)
	args := []any{nodeID}
	if len(edgeTypes) > 0 {
		args = append(args, edgeTypes)
		query += fmt.Sprintf(" AND e.edge_type = ANY($%d)", len(args))
	}
	query += " ORDER BY e.id"

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, graph.NewError("Neighbors", "edge", nodeID, graph.KindInternal, err)
	}
	defer rows.Close()

	var edges []*graph.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, graph.NewError("Neighbors", "edge", nodeID, graph.KindInternal, err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (s edgeSource) ResolveNodes(ctx context.Context, ids []string) (map[string]*graph.Node, error) {
	out := make(map[string]*graph.Node, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pool, err := s.b.conn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1) AND retired_at IS NULL`,
		nodeColumns, s.b.table("nodes"))
	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return nil, graph.NewError("ResolveNodes", "node", "", graph.KindInternal, err)
	}
	defer rows.Close()

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, graph.NewError("ResolveNodes", "node", "", graph.KindInternal, err)
		}
		out[node.ID] = node
	}
	return out, rows.Err()
}

func (s edgeSource) ResolveEdges(ctx context.Context, ids []string) (map[string]*graph.Edge, error) {
	out := make(map[string]*graph.Edge, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pool, err := s.b.conn()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1) AND retired_at IS NULL`,
		edgeColumns, s.b.table("edges"))
	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return nil, graph.NewError("ResolveEdges", "edge", "", graph.KindInternal, err)
	}
	defer rows.Close()

	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, graph.NewError("ResolveEdges", "edge", "", graph.KindInternal, err)
		}
		out[edge.ID] = edge
	}
	return out, rows.Err()
}

// Traverse explores outward from startID using frontier expansion over the
// adjacency tables.
func (b *Backend) Traverse(ctx context.Context, startID string, params graph.TraversalParams) ([]*graph.Node, error) {
	start := time.Now()
	nodes, err := traversal.Traverse(ctx, edgeSource{b}, startID, params)
	b.metrics.RecordGraphOperation(backendName, "Traverse", time.Since(start), err)
	if err == nil {
		b.metrics.RecordTraversal(backendName, len(nodes))
	}
	return nodes, err
}

// FindShortestPath returns the minimum-cost path within maxDepth, or
// (nil, nil) when unreachable.
func (b *Backend) FindShortestPath(ctx context.Context, startID, endID string, maxDepth int, edgeTypes []string) (*graph.Path, error) {
	start := time.Now()
	path, err := traversal.ShortestPath(ctx, edgeSource{b}, startID, endID, maxDepth, edgeTypes)
	b.metrics.RecordGraphOperation(backendName, "FindShortestPath", time.Since(start), err)
	return path, err
}

// FindAllPaths returns up to limit paths within maxDepth, ordered by cost.
func (b *Backend) FindAllPaths(ctx context.Context, startID, endID string, maxDepth, limit int) ([]*graph.Path, error) {
	start := time.Now()
	paths, err := traversal.AllPaths(ctx, edgeSource{b}, startID, endID, maxDepth, limit)
	b.metrics.RecordGraphOperation(backendName, "FindAllPaths", time.Since(start), err)
	return paths, err
}

// GetNeighbors returns the one-hop neighbors of a node.
func (b *Backend) GetNeighbors(ctx context.Context, nodeID string, direction graph.Direction, edgeTypes []string, limit int) ([]*graph.Node, error) {
	if direction == "" {
		direction = graph.DirectionBoth
	}
	src := edgeSource{b}
	edges, err := src.Neighbors(ctx, nodeID, direction, edgeTypes)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(edges))
	var ids []string
	for _, e := range edges {
		var other string
		switch direction {
		case graph.DirectionOutgoing:
			other = e.TargetID
		case graph.DirectionIncoming:
			other = e.SourceID
		default:
			other = e.OtherEnd(nodeID)
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}

	resolved, err := src.ResolveNodes(ctx, ids)
	if err != nil {
		return nil, err
	}
	neighbors := make([]*graph.Node, 0, len(resolved))
	for _, n := range resolved {
		neighbors = append(neighbors, n)
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if ni, nj := neighbors[i].Name(), neighbors[j].Name(); ni != nj {
			return ni < nj
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// GetSubgraph returns the induced subgraph over the given node set.
func (b *Backend) GetSubgraph(ctx context.Context, nodeIDs []string, includeEdges bool) (*graph.Subgraph, error) {
	src := edgeSource{b}
	resolved, err := src.ResolveNodes(ctx, nodeIDs)
	if err != nil {
		return nil, err
	}

	sub := &graph.Subgraph{Nodes: make([]*graph.Node, 0, len(resolved))}
	for _, n := range resolved {
		sub.Nodes = append(sub.Nodes, n)
	}
	sort.Slice(sub.Nodes, func(i, j int) bool { return sub.Nodes[i].ID < sub.Nodes[j].ID })

	if !includeEdges || len(resolved) == 0 {
		return sub, nil
	}

	pool, err := b.conn()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resolved))
	for id := range resolved {
		ids = append(ids, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE source_id = ANY($1) AND target_id = ANY($1) AND retired_at IS NULL
		ORDER BY id`, edgeColumns, b.table("edges"))
	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return nil, graph.NewError("GetSubgraph", "edge", "", graph.KindInternal, err)
	}
	defer rows.Close()

	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, graph.NewError("GetSubgraph", "edge", "", graph.KindInternal, err)
		}
		sub.Edges = append(sub.Edges, edge)
	}
	return sub, rows.Err()
}
