package traversal

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// memorySource is an in-memory EdgeSource for exercising the traversal
// algorithms without a live store.
type memorySource struct {
	nodes map[string]*graph.Node
	edges map[string]*graph.Edge
}

func newMemorySource() *memorySource {
	return &memorySource{
		nodes: make(map[string]*graph.Node),
		edges: make(map[string]*graph.Edge),
	}
}

func (s *memorySource) addNode(id string, labels ...string) *memorySource {
	s.nodes[id] = &graph.Node{
		ID:         id,
		Labels:     labels,
		Properties: map[string]any{"name": id},
		CreatedAt:  time.Now(),
	}
	return s
}

func (s *memorySource) addEdge(id, source, target string, weight float64) *memorySource {
	s.edges[id] = &graph.Edge{
		ID:       id,
		SourceID: source,
		TargetID: target,
		Type:     "RELATES_TO",
		Weight:   weight,
	}
	return s
}

func (s *memorySource) retireNode(id string) {
	now := time.Now()
	s.nodes[id].RetiredAt = &now
}

func (s *memorySource) Neighbors(_ context.Context, nodeID string, direction graph.Direction, edgeTypes []string) ([]*graph.Edge, error) {
	typeSet := make(map[string]struct{}, len(edgeTypes))
	for _, t := range edgeTypes {
		typeSet[t] = struct{}{}
	}

	var out []*graph.Edge
	for _, e := range s.edges {
		if e.RetiredAt != nil {
			continue
		}
		if len(typeSet) > 0 {
			if _, ok := typeSet[e.Type]; !ok {
				continue
			}
		}
		matches := false
		switch direction {
		case graph.DirectionOutgoing:
			matches = e.SourceID == nodeID
		case graph.DirectionIncoming:
			matches = e.TargetID == nodeID
		default:
			matches = e.SourceID == nodeID || e.TargetID == nodeID
		}
		if !matches {
			continue
		}
		if far := s.nodes[e.OtherEnd(nodeID)]; far == nil || far.RetiredAt != nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memorySource) ResolveNodes(_ context.Context, ids []string) (map[string]*graph.Node, error) {
	out := make(map[string]*graph.Node, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok && n.RetiredAt == nil {
			out[id] = n
		}
	}
	return out, nil
}

func (s *memorySource) ResolveEdges(_ context.Context, ids []string) (map[string]*graph.Edge, error) {
	out := make(map[string]*graph.Edge, len(ids))
	for _, id := range ids {
		if e, ok := s.edges[id]; ok && e.RetiredAt == nil {
			out[id] = e
		}
	}
	return out, nil
}

// chainSource builds A -> B -> C -> D.
func chainSource() *memorySource {
	return newMemorySource().
		addNode("A").addNode("B").addNode("C").addNode("D").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "B", "C", 1.0).
		addEdge("e3", "C", "D", 1.0)
}

func TestTraverseDepthBound(t *testing.T) {
	src := chainSource()

	nodes, err := Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 2})
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "B", nodes[0].ID)
	assert.Equal(t, 1, nodes[0].Depth)
	assert.Equal(t, []string{"A", "B"}, nodes[0].Path)

	assert.Equal(t, "C", nodes[1].ID)
	assert.Equal(t, 2, nodes[1].Depth)
	assert.Equal(t, []string{"A", "B", "C"}, nodes[1].Path)
}

func TestTraverseExcludesStartNode(t *testing.T) {
	src := chainSource()

	nodes, err := Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 3})
	require.NoError(t, err)
	for _, n := range nodes {
		assert.NotEqual(t, "A", n.ID)
	}
}

func TestTraverseCycleTerminates(t *testing.T) {
	src := newMemorySource().
		addNode("A").addNode("B").addNode("C").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "B", "C", 1.0).
		addEdge("e3", "C", "A", 1.0)

	nodes, err := Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 10})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		seen := make(map[string]int)
		for _, id := range n.Path {
			seen[id]++
			assert.Equal(t, 1, seen[id], "path revisits %s", id)
		}
	}
}

func TestTraverseDirections(t *testing.T) {
	src := chainSource()

	tests := []struct {
		name      string
		start     string
		direction graph.Direction
		want      []string
	}{
		{"outgoing from B", "B", graph.DirectionOutgoing, []string{"C", "D"}},
		{"incoming to C", "C", graph.DirectionIncoming, []string{"B", "A"}},
		{"both from B", "B", graph.DirectionBoth, []string{"A", "C", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := Traverse(context.Background(), src, tt.start, graph.TraversalParams{
				MaxDepth:  3,
				Direction: tt.direction,
			})
			require.NoError(t, err)
			got := make([]string, 0, len(nodes))
			for _, n := range nodes {
				got = append(got, n.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestTraverseLabelFilterAndLimit(t *testing.T) {
	src := newMemorySource().
		addNode("A", "Person").
		addNode("B", "Person").
		addNode("C", "Company").
		addNode("D", "Person").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "A", "C", 1.0).
		addEdge("e3", "C", "D", 1.0)

	nodes, err := Traverse(context.Background(), src, "A", graph.TraversalParams{
		MaxDepth:   2,
		NodeLabels: []string{"Person"},
	})
	require.NoError(t, err)
	got := make([]string, 0, len(nodes))
	for _, n := range nodes {
		got = append(got, n.ID)
	}
	assert.ElementsMatch(t, []string{"B", "D"}, got)

	nodes, err = Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 2, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Equal(t, 1, nodes[0].Depth)
}

func TestTraverseInvalidParams(t *testing.T) {
	src := chainSource()

	_, err := Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 0})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))

	_, err = Traverse(context.Background(), src, "A", graph.TraversalParams{MaxDepth: 1, Direction: "sideways"})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))
}

func TestShortestPathPrefersWeight(t *testing.T) {
	// Two routes from A to D: a two-hop route with low weights and a
	// direct edge with weight 0.9. Cost is 1 - weight per edge, so the
	// direct edge (cost 0.1) beats the two-hop route (cost 1.0).
	src := newMemorySource().
		addNode("A").addNode("B").addNode("D").
		addEdge("e1", "A", "B", 0.5).
		addEdge("e2", "B", "D", 0.5).
		addEdge("e3", "A", "D", 0.9)

	p, err := ShortestPath(context.Background(), src, "A", "D", 5, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Length)
	assert.InDelta(t, 0.1, p.TotalWeight, 1e-9)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "A", p.Nodes[0].ID)
	assert.Equal(t, "D", p.Nodes[1].ID)
}

func TestShortestPathTieBreaksOnHops(t *testing.T) {
	// Both routes cost 0.0 (all weights 1.0); the one-hop route wins.
	src := newMemorySource().
		addNode("A").addNode("B").addNode("D").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "B", "D", 1.0).
		addEdge("e3", "A", "D", 1.0)

	p, err := ShortestPath(context.Background(), src, "A", "D", 5, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Length)
}

func TestShortestPathChain(t *testing.T) {
	src := chainSource()

	p, err := ShortestPath(context.Background(), src, "A", "D", 5, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Length)
	require.Len(t, p.Edges, 3)
	assert.Equal(t, "e1", p.Edges[0].ID)
	assert.Equal(t, "e3", p.Edges[2].ID)
}

func TestShortestPathDisconnected(t *testing.T) {
	src := newMemorySource().
		addNode("A").addNode("B").addNode("X").addNode("Y").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "X", "Y", 1.0)

	p, err := ShortestPath(context.Background(), src, "A", "Y", 10, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestShortestPathDepthBound(t *testing.T) {
	src := chainSource()

	p, err := ShortestPath(context.Background(), src, "A", "D", 2, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestShortestPathSameNode(t *testing.T) {
	src := chainSource()

	p, err := ShortestPath(context.Background(), src, "A", "A", 3, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Length)
	require.Len(t, p.Nodes, 1)
	assert.Empty(t, p.Edges)
}

func TestShortestPathRetiredIntermediate(t *testing.T) {
	src := chainSource()
	src.retireNode("B")

	p, err := ShortestPath(context.Background(), src, "A", "D", 5, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAllPathsOrdering(t *testing.T) {
	src := newMemorySource().
		addNode("A").addNode("B").addNode("C").addNode("D").
		addEdge("e1", "A", "B", 1.0).
		addEdge("e2", "B", "D", 1.0).
		addEdge("e3", "A", "C", 0.5).
		addEdge("e4", "C", "D", 0.5).
		addEdge("e5", "A", "D", 0.8)

	paths, err := AllPaths(context.Background(), src, "A", "D", 4, 0)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for i := 1; i < len(paths); i++ {
		if paths[i-1].TotalWeight == paths[i].TotalWeight {
			assert.LessOrEqual(t, paths[i-1].Length, paths[i].Length)
		} else {
			assert.Less(t, paths[i-1].TotalWeight, paths[i].TotalWeight)
		}
	}

	limited, err := AllPaths(context.Background(), src, "A", "D", 4, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, paths[0].TotalWeight, limited[0].TotalWeight)
}
