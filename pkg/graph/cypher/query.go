package cypher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// pathLiveness keeps traversal and path queries off retired entities and
// enforces node-unique paths, matching the relational backend's branch-local
// cycle prevention.
const pathLiveness = `all(r IN relationships(p) WHERE r.retired_at IS NULL)
	AND all(x IN nodes(p) WHERE x.retired_at IS NULL)
	AND all(x IN nodes(p) WHERE single(y IN nodes(p) WHERE y = x))`

// Traverse explores outward from startID using a bounded variable-length
// relationship pattern. Direction and edge-type filters translate directly
// into pattern syntax.
func (b *Backend) Traverse(ctx context.Context, startID string, params graph.TraversalParams) ([]*graph.Node, error) {
	if params.MaxDepth < 1 {
		return nil, graph.ValidationError("Traverse", "node", startID, errors.New("max depth must be >= 1"))
	}
	direction := params.Direction
	if direction == "" {
		direction = graph.DirectionOutgoing
	}
	if !direction.Valid() {
		return nil, graph.ValidationError("Traverse", "node", startID, errors.New("invalid direction"))
	}
	if err := checkSymbols("Traverse", params.EdgeTypes); err != nil {
		return nil, err
	}
	if err := checkSymbols("Traverse", params.NodeLabels); err != nil {
		return nil, err
	}

	pattern := fmt.Sprintf("[%s*1..%d]", typeFragment(params.EdgeTypes), params.MaxDepth)
	var arrow string
	switch direction {
	case graph.DirectionOutgoing:
		arrow = "-" + pattern + "->"
	case graph.DirectionIncoming:
		arrow = "<-" + pattern + "-"
	default:
		arrow = "-" + pattern + "-"
	}

	labelFilter := ""
	queryParams := map[string]any{"start": startID}
	if len(params.NodeLabels) > 0 {
		labelFilter = " AND any(l IN labels(n) WHERE l IN $labels)"
		queryParams["labels"] = params.NodeLabels
	}
	limitClause := ""
	if params.Limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT %d", params.Limit)
	}

	// Equal-depth routes tie-break on the path's node ids so the annotated
	// path is stable across runs.
	query := `MATCH p = (s {id: $start})` + arrow + `(n)
		WHERE s.retired_at IS NULL AND n <> s AND ` + pathLiveness + labelFilter + `
		WITH n, p ORDER BY length(p), [x IN nodes(p) | x.id]
		WITH n, collect({depth: length(p), ids: [x IN nodes(p) | x.id]})[0] AS first
		RETURN n, first
		ORDER BY first.depth, n.name, n.id` + limitClause

	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeRead, query, queryParams)
	b.metrics.RecordGraphOperation(backendName, "Traverse", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("Traverse", "node", startID, graph.KindInternal, err)
	}

	results := make([]*graph.Node, 0, len(records))
	for _, record := range records {
		value, _ := record.Get("n")
		node, err := nodeFromValue(value)
		if err != nil {
			return nil, graph.NewError("Traverse", "node", startID, graph.KindInternal, err)
		}
		firstValue, _ := record.Get("first")
		if first, ok := firstValue.(map[string]any); ok {
			if depth, ok := first["depth"].(int64); ok {
				node.Depth = int(depth)
			}
			node.Path = toStringSlice(first["ids"])
		}
		results = append(results, node)
	}
	b.metrics.RecordTraversal(backendName, len(results))
	return results, nil
}

// FindShortestPath returns the minimum-cost path within maxDepth, or
// (nil, nil) when unreachable. Candidate paths are enumerated and ordered
// by transformed weight then hop count in the store; the hop-minimal
// shortestPath primitive alone cannot honor the weighted tie-breaking the
// contract requires.
func (b *Backend) FindShortestPath(ctx context.Context, startID, endID string, maxDepth int, edgeTypes []string) (*graph.Path, error) {
	if maxDepth < 1 {
		return nil, graph.ValidationError("FindShortestPath", "path", "", errors.New("max depth must be >= 1"))
	}
	if err := checkSymbols("FindShortestPath", edgeTypes); err != nil {
		return nil, err
	}
	if startID == endID {
		return b.trivialPath(ctx, startID)
	}

	paths, err := b.collectPaths(ctx, startID, endID, maxDepth, edgeTypes, 1)
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	return paths[0], nil
}

// FindAllPaths returns up to limit paths within maxDepth, ordered by
// (cost, length).
func (b *Backend) FindAllPaths(ctx context.Context, startID, endID string, maxDepth, limit int) ([]*graph.Path, error) {
	if maxDepth < 1 {
		return nil, graph.ValidationError("FindAllPaths", "path", "", errors.New("max depth must be >= 1"))
	}
	if startID == endID {
		p, err := b.trivialPath(ctx, startID)
		if err != nil || p == nil {
			return nil, err
		}
		return []*graph.Path{p}, nil
	}
	return b.collectPaths(ctx, startID, endID, maxDepth, nil, limit)
}

func (b *Backend) collectPaths(ctx context.Context, startID, endID string, maxDepth int, edgeTypes []string, limit int) ([]*graph.Path, error) {
	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT %d", limit)
	}
	query := fmt.Sprintf(`MATCH p = (s {id: $start})-[%s*1..%d]-(t {id: $end})
		WHERE `+pathLiveness+`
		WITH p, reduce(cost = 0.0, r IN relationships(p) | cost + (1.0 - coalesce(r.weight, 1.0))) AS cost
		RETURN nodes(p) AS nodes, relationships(p) AS rels, cost, length(p) AS len
		ORDER BY cost, len`+limitClause,
		typeFragment(edgeTypes), maxDepth)

	start := time.Now()
	records, err := b.run(ctx, neo4j.AccessModeRead, query, map[string]any{
		"start": startID,
		"end":   endID,
	})
	b.metrics.RecordGraphOperation(backendName, "FindPaths", time.Since(start), err)
	if err != nil {
		return nil, graph.NewError("FindPaths", "path", "", graph.KindInternal, err)
	}

	paths := make([]*graph.Path, 0, len(records))
	for _, record := range records {
		path, err := pathFromRecord(record)
		if err != nil {
			return nil, graph.NewError("FindPaths", "path", "", graph.KindInternal, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func pathFromRecord(record *neo4j.Record) (*graph.Path, error) {
	nodesValue, _ := record.Get("nodes")
	relsValue, _ := record.Get("rels")
	costValue, _ := record.Get("cost")
	lenValue, _ := record.Get("len")

	nodeItems, _ := nodesValue.([]any)
	relItems, _ := relsValue.([]any)

	p := &graph.Path{
		Nodes: make([]*graph.Node, 0, len(nodeItems)),
		Edges: make([]*graph.Edge, 0, len(relItems)),
	}
	for _, item := range nodeItems {
		node, err := nodeFromValue(item)
		if err != nil {
			return nil, err
		}
		p.Nodes = append(p.Nodes, node)
	}
	for _, item := range relItems {
		edge, err := edgeFromValue(item)
		if err != nil {
			return nil, err
		}
		p.Edges = append(p.Edges, edge)
	}
	if cost, ok := costValue.(float64); ok {
		p.TotalWeight = cost
	}
	if length, ok := lenValue.(int64); ok {
		p.Length = int(length)
	}
	return p, nil
}

// trivialPath returns the zero-length path for start == end, or (nil, nil)
// when the node is absent.
func (b *Backend) trivialPath(ctx context.Context, id string) (*graph.Path, error) {
	node, err := b.GetNode(ctx, id)
	if err != nil || node == nil {
		return nil, err
	}
	return &graph.Path{Nodes: []*graph.Node{node}, Edges: []*graph.Edge{}}, nil
}

// GetNeighbors returns the one-hop neighbors of a node.
func (b *Backend) GetNeighbors(ctx context.Context, nodeID string, direction graph.Direction, edgeTypes []string, limit int) ([]*graph.Node, error) {
	if err := checkSymbols("GetNeighbors", edgeTypes); err != nil {
		return nil, err
	}
	if direction == "" {
		direction = graph.DirectionBoth
	}

	pattern := "[r" + typeFragment(edgeTypes) + "]"
	var arrow string
	switch direction {
	case graph.DirectionOutgoing:
		arrow = "-" + pattern + "->"
	case graph.DirectionIncoming:
		arrow = "<-" + pattern + "-"
	default:
		arrow = "-" + pattern + "-"
	}
	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT %d", limit)
	}

	query := `MATCH (n {id: $id})` + arrow + `(m)
		WHERE n.retired_at IS NULL AND m.retired_at IS NULL AND r.retired_at IS NULL
		RETURN DISTINCT m ORDER BY m.name, m.id` + limitClause
	records, err := b.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": nodeID})
	if err != nil {
		return nil, graph.NewError("GetNeighbors", "node", nodeID, graph.KindInternal, err)
	}

	neighbors := make([]*graph.Node, 0, len(records))
	for _, record := range records {
		value, _ := record.Get("m")
		node, err := nodeFromValue(value)
		if err != nil {
			return nil, graph.NewError("GetNeighbors", "node", nodeID, graph.KindInternal, err)
		}
		neighbors = append(neighbors, node)
	}
	return neighbors, nil
}

// GetSubgraph returns the induced subgraph over the given node set.
func (b *Backend) GetSubgraph(ctx context.Context, nodeIDs []string, includeEdges bool) (*graph.Subgraph, error) {
	records, err := b.run(ctx, neo4j.AccessModeRead,
		`MATCH (n) WHERE n.id IN $ids AND n.retired_at IS NULL RETURN n ORDER BY n.id`,
		map[string]any{"ids": nodeIDs})
	if err != nil {
		return nil, graph.NewError("GetSubgraph", "node", "", graph.KindInternal, err)
	}

	sub := &graph.Subgraph{Nodes: make([]*graph.Node, 0, len(records))}
	for _, record := range records {
		value, _ := record.Get("n")
		node, err := nodeFromValue(value)
		if err != nil {
			return nil, graph.NewError("GetSubgraph", "node", "", graph.KindInternal, err)
		}
		sub.Nodes = append(sub.Nodes, node)
	}
	if !includeEdges || len(sub.Nodes) == 0 {
		return sub, nil
	}

	edgeRecords, err := b.run(ctx, neo4j.AccessModeRead,
		`MATCH (a)-[r]->(b)
		WHERE a.id IN $ids AND b.id IN $ids
		  AND a.retired_at IS NULL AND b.retired_at IS NULL AND r.retired_at IS NULL
		RETURN r ORDER BY r.id`,
		map[string]any{"ids": nodeIDs})
	if err != nil {
		return nil, graph.NewError("GetSubgraph", "edge", "", graph.KindInternal, err)
	}
	for _, record := range edgeRecords {
		value, _ := record.Get("r")
		edge, err := edgeFromValue(value)
		if err != nil {
			return nil, graph.NewError("GetSubgraph", "edge", "", graph.KindInternal, err)
		}
		sub.Edges = append(sub.Edges, edge)
	}
	return sub, nil
}
