package traversal

import (
	"context"
	"errors"
	"sort"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// reached records the depth and path at which a node was first discovered.
type reached struct {
	depth int
	path  []string
}

// Traverse explores outward from startID up to params.MaxDepth, expanding a
// frontier of branches level by level. A node already present in a branch's
// path is never revisited along that branch. The start node itself is not
// part of the result.
//
// Results are deduplicated on first reach (BFS order guarantees minimal
// depth), filtered by the node-label allow-list, annotated with depth and
// path, and ordered by depth, then name, then id.
func Traverse(ctx context.Context, src EdgeSource, startID string, params graph.TraversalParams) ([]*graph.Node, error) {
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

	frontier := []branch{{nodeID: startID, depth: 0, path: []string{startID}}}
	first := make(map[string]reached)

	for depth := 1; depth <= params.MaxDepth && len(frontier) > 0; depth++ {
		var next []branch
		for _, b := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := src.Neighbors(ctx, b.nodeID, direction, params.EdgeTypes)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				candidate := nextNode(e, b.nodeID, direction)
				if candidate == "" || b.inPath(candidate) {
					continue
				}
				nb := b.extend(e, candidate)
				if _, seen := first[candidate]; !seen {
					first[candidate] = reached{depth: nb.depth, path: nb.path}
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(first))
	for id := range first {
		ids = append(ids, id)
	}
	nodes, err := src.ResolveNodes(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*graph.Node, 0, len(nodes))
	for id, r := range first {
		node, ok := nodes[id]
		if !ok {
			continue
		}
		if len(params.NodeLabels) > 0 && !hasAnyLabel(node, params.NodeLabels) {
			continue
		}
		annotated := node.Clone()
		annotated.Depth = r.depth
		annotated.Path = r.path
		results = append(results, annotated)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		if ni, nj := results[i].Name(), results[j].Name(); ni != nj {
			return ni < nj
		}
		return results[i].ID < results[j].ID
	})

	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// nextNode resolves the endpoint an edge leads to from current, honoring
// direction. Returns "" when the edge does not extend the branch in the
// requested direction.
func nextNode(e *graph.Edge, current string, direction graph.Direction) string {
	switch direction {
	case graph.DirectionOutgoing:
		if e.SourceID == current {
			return e.TargetID
		}
	case graph.DirectionIncoming:
		if e.TargetID == current {
			return e.SourceID
		}
	case graph.DirectionBoth:
		return e.OtherEnd(current)
	}
	return ""
}

func hasAnyLabel(n *graph.Node, labels []string) bool {
	for _, l := range labels {
		if n.HasLabel(l) {
			return true
		}
	}
	return false
}
