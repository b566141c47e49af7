// Package traversal implements the frontier-expansion algorithms shared by
// backends that have no native multi-hop primitive. Each traversal branch
// carries its own path array for cycle prevention, so branches stay
// independent and safe to expand concurrently.
package traversal

import (
	"context"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// EdgeSource supplies live (non-retired) adjacency data to the traversal
// algorithms. One Neighbors call corresponds to one store round trip.
type EdgeSource interface {
	// Neighbors returns the live edges incident to nodeID that match the
	// direction and edge-type allow-list. For DirectionOutgoing only edges
	// with SourceID == nodeID are returned, for DirectionIncoming only edges
	// with TargetID == nodeID, and for DirectionBoth the union of both.
	Neighbors(ctx context.Context, nodeID string, direction graph.Direction, edgeTypes []string) ([]*graph.Edge, error)

	// ResolveNodes returns the live nodes for the given ids, keyed by id.
	// Missing or retired ids are simply absent from the result.
	ResolveNodes(ctx context.Context, ids []string) (map[string]*graph.Node, error)

	// ResolveEdges returns the live edges for the given ids, keyed by id.
	ResolveEdges(ctx context.Context, ids []string) (map[string]*graph.Edge, error)
}

// branch is one candidate walk through the graph. The path slice doubles as
// the branch-local visited set.
type branch struct {
	nodeID  string
	depth   int
	path    []string
	edgeIDs []string
	weight  float64
}

// inPath reports whether id already occurs in the branch's path.
func (b branch) inPath(id string) bool {
	for _, p := range b.path {
		if p == id {
			return true
		}
	}
	return false
}

// extend returns a new branch that crosses edge e to nextID. The parent's
// slices are never aliased so sibling branches stay independent.
func (b branch) extend(e *graph.Edge, nextID string) branch {
	path := make([]string, len(b.path)+1)
	copy(path, b.path)
	path[len(b.path)] = nextID

	edgeIDs := make([]string, len(b.edgeIDs)+1)
	copy(edgeIDs, b.edgeIDs)
	edgeIDs[len(b.edgeIDs)] = e.ID

	return branch{
		nodeID:  nextID,
		depth:   b.depth + 1,
		path:    path,
		edgeIDs: edgeIDs,
		weight:  b.weight + e.TransformedWeight(),
	}
}
