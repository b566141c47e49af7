package traversal

import (
	"context"
	"errors"
	"sort"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// ShortestPath finds the minimum-cost path from startID to endID within
// maxDepth hops, where each edge costs 1 − weight and ties break on hop
// count. Edges are followed in either direction, matching the native
// backend's undirected shortest-path primitive. Returns (nil, nil) when no
// path exists within the bound.
func ShortestPath(ctx context.Context, src EdgeSource, startID, endID string, maxDepth int, edgeTypes []string) (*graph.Path, error) {
	candidates, err := collectPaths(ctx, src, startID, endID, maxDepth, edgeTypes, 0)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	best := candidates[0]
	return resolvePath(ctx, src, best)
}

// AllPaths finds up to limit paths from startID to endID within maxDepth
// hops, ordered by (cost, length). A limit of 0 means unbounded.
func AllPaths(ctx context.Context, src EdgeSource, startID, endID string, maxDepth, limit int) ([]*graph.Path, error) {
	candidates, err := collectPaths(ctx, src, startID, endID, maxDepth, nil, limit)
	if err != nil {
		return nil, err
	}
	paths := make([]*graph.Path, 0, len(candidates))
	for _, c := range candidates {
		p, err := resolvePath(ctx, src, c)
		if err != nil {
			return nil, err
		}
		if p != nil {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// collectPaths runs frontier-based path accumulation. A branch terminates
// once it reaches the target and is excluded from further expansion. The
// returned candidates are sorted by (cumulative weight, length).
func collectPaths(ctx context.Context, src EdgeSource, startID, endID string, maxDepth int, edgeTypes []string, limit int) ([]branch, error) {
	if maxDepth < 1 {
		return nil, graph.ValidationError("FindShortestPath", "path", "", errors.New("max depth must be >= 1"))
	}
	if startID == endID {
		return []branch{{nodeID: startID, path: []string{startID}}}, nil
	}

	frontier := []branch{{nodeID: startID, depth: 0, path: []string{startID}}}
	var found []branch

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []branch
		for _, b := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := src.Neighbors(ctx, b.nodeID, graph.DirectionBoth, edgeTypes)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				candidate := e.OtherEnd(b.nodeID)
				if b.inPath(candidate) {
					continue
				}
				nb := b.extend(e, candidate)
				if candidate == endID {
					found = append(found, nb)
					continue
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].weight != found[j].weight {
			return found[i].weight < found[j].weight
		}
		return len(found[i].edgeIDs) < len(found[j].edgeIDs)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

// resolvePath turns a winning branch's id sequences back into full node and
// edge objects, preserving order. Returns (nil, nil) when any id can no
// longer be resolved, which means the path crossed a retired entity.
func resolvePath(ctx context.Context, src EdgeSource, b branch) (*graph.Path, error) {
	nodes, err := src.ResolveNodes(ctx, b.path)
	if err != nil {
		return nil, err
	}
	edges, err := src.ResolveEdges(ctx, b.edgeIDs)
	if err != nil {
		return nil, err
	}

	p := &graph.Path{
		Nodes:       make([]*graph.Node, 0, len(b.path)),
		Edges:       make([]*graph.Edge, 0, len(b.edgeIDs)),
		TotalWeight: b.weight,
		Length:      len(b.edgeIDs),
	}
	for _, id := range b.path {
		n, ok := nodes[id]
		if !ok {
			return nil, nil
		}
		p.Nodes = append(p.Nodes, n.Clone())
	}
	for _, id := range b.edgeIDs {
		e, ok := edges[id]
		if !ok {
			return nil, nil
		}
		p.Edges = append(p.Edges, e.Clone())
	}
	return p, nil
}
