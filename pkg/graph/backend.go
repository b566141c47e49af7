package graph

import "context"

// Backend is the capability contract every graph storage engine implements.
//
// Semantics shared by all implementations:
//
//   - Lookups for a missing node, edge, or path return a nil result and a nil
//     error; errors are reserved for connectivity, configuration, and
//     validation failures.
//   - Deletion is a soft delete: a retirement marker is set and all read and
//     traversal operations exclude retired entities. Physical purging is an
//     external maintenance concern.
//   - Traversal is cycle-safe: a node already present in a branch's path is
//     never revisited along that branch.
//   - Batch creation is internally chunked to bound request size; chunk
//     boundaries are not an atomicity guarantee across the whole batch.
//     Callers may supply stable identifiers to make retries idempotent.
type Backend interface {
	// Connect establishes the connection to the underlying store. Fails with
	// a connectivity error when the store is unreachable.
	Connect(ctx context.Context) error
	// Disconnect releases the connection.
	Disconnect(ctx context.Context) error
	// IsConnected reports whether the backend currently holds a usable
	// connection.
	IsConnected(ctx context.Context) bool

	// CreateNode creates a single node. When spec.ID is empty an identifier
	// is generated.
	CreateNode(ctx context.Context, spec NodeSpec) (*Node, error)
	// BatchCreateNodes creates nodes in order. Large batches are chunked
	// internally.
	BatchCreateNodes(ctx context.Context, specs []NodeSpec) ([]*Node, error)
	// GetNode returns the node, or (nil, nil) when it does not exist or is
	// retired.
	GetNode(ctx context.Context, id string) (*Node, error)
	// UpdateNode merges or replaces the node's property map.
	UpdateNode(ctx context.Context, id string, properties map[string]any, mode UpdateMode) (*Node, error)
	// DeleteNode soft-deletes the node.
	DeleteNode(ctx context.Context, id string) error

	// CreateEdge creates a single edge. Self-loops are rejected.
	CreateEdge(ctx context.Context, spec EdgeSpec) (*Edge, error)
	// BatchCreateEdges creates edges in order, chunked internally.
	BatchCreateEdges(ctx context.Context, specs []EdgeSpec) ([]*Edge, error)
	// GetEdge returns the edge, or (nil, nil) when absent or retired.
	GetEdge(ctx context.Context, id string) (*Edge, error)
	// UpdateEdge merges or replaces the edge's property map.
	UpdateEdge(ctx context.Context, id string, properties map[string]any, mode UpdateMode) (*Edge, error)
	// DeleteEdge soft-deletes the edge.
	DeleteEdge(ctx context.Context, id string) error

	// Traverse explores outward from startID up to params.MaxDepth, returning
	// reached nodes annotated with depth and path, deduplicated, ordered by
	// depth then name.
	Traverse(ctx context.Context, startID string, params TraversalParams) ([]*Node, error)
	// FindShortestPath returns the minimum-cost path between two nodes, where
	// each edge costs 1 − weight and ties break on hop count. Returns
	// (nil, nil) when no path exists within maxDepth.
	FindShortestPath(ctx context.Context, startID, endID string, maxDepth int, edgeTypes []string) (*Path, error)
	// FindAllPaths returns up to limit paths between two nodes within
	// maxDepth.
	FindAllPaths(ctx context.Context, startID, endID string, maxDepth, limit int) ([]*Path, error)
	// GetNeighbors returns one-hop neighbors of a node.
	GetNeighbors(ctx context.Context, nodeID string, direction Direction, edgeTypes []string, limit int) ([]*Node, error)
	// GetSubgraph returns the induced subgraph over the given node set.
	GetSubgraph(ctx context.Context, nodeIDs []string, includeEdges bool) (*Subgraph, error)

	// FindNodes returns nodes matching the filter.
	FindNodes(ctx context.Context, filter NodeFilter) ([]*Node, error)
	// FindEdges returns edges matching the filter.
	FindEdges(ctx context.Context, filter EdgeFilter) ([]*Edge, error)

	// ExecuteNativeQuery runs a raw query against the underlying store. The
	// result shape is backend-specific; this is a non-portable escape hatch
	// to be used sparingly.
	ExecuteNativeQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	// CountNodes returns the number of live nodes matching the filter.
	CountNodes(ctx context.Context, filter NodeFilter) (int64, error)
	// CountEdges returns the number of live edges matching the filter.
	CountEdges(ctx context.Context, filter EdgeFilter) (int64, error)
}

// BatchChunkSize bounds the number of records sent in one request during
// batch creation. Grouping is a size concern, not a correctness boundary.
const BatchChunkSize = 1000
