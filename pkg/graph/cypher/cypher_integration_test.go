package cypher

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// Integration tests need a live Neo4j-compatible store. Set
// GRAPH_TEST_NEO4J_URI (plus optional _USERNAME/_PASSWORD) to enable them.
// Tests clean up their own data by id prefix.
func testBackend(t *testing.T) *Backend {
	t.Helper()
	uri := os.Getenv("GRAPH_TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("GRAPH_TEST_NEO4J_URI not set")
	}
	username := os.Getenv("GRAPH_TEST_NEO4J_USERNAME")
	if username == "" {
		username = "neo4j"
	}

	b := New(Config{
		URI:      uri,
		Username: username,
		Password: os.Getenv("GRAPH_TEST_NEO4J_PASSWORD"),
	}, nil, nil)
	ctx := context.Background()
	require.NoError(t, b.Connect(ctx))
	t.Cleanup(func() {
		_, _ = b.ExecuteNativeQuery(ctx,
			"MATCH (n) WHERE n.id STARTS WITH $prefix DETACH DELETE n",
			map[string]any{"prefix": "it-"})
		_ = b.Disconnect(ctx)
	})
	return b
}

func TestCypherNodeLifecycle(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	created, err := b.CreateNode(ctx, graph.NodeSpec{
		ID:         "it-n1",
		Labels:     []string{"Person"},
		Properties: map[string]any{"name": "alice", "nested": map[string]any{"city": "dublin"}},
	})
	require.NoError(t, err)

	got, err := b.GetNode(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Properties["name"])
	nested, ok := got.Properties["nested"].(map[string]any)
	require.True(t, ok, "nested property maps survive the round trip")
	assert.Equal(t, "dublin", nested["city"])

	merged, err := b.UpdateNode(ctx, created.ID, map[string]any{"age": float64(30)}, graph.UpdateMerge)
	require.NoError(t, err)
	assert.Equal(t, "alice", merged.Properties["name"])
	assert.Equal(t, float64(30), merged.Properties["age"])

	require.NoError(t, b.DeleteNode(ctx, created.ID))
	gone, err := b.GetNode(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCypherEdgeRequiresLiveEndpoints(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	_, err := b.CreateNode(ctx, graph.NodeSpec{ID: "it-a", Labels: []string{"N"}})
	require.NoError(t, err)

	_, err = b.CreateEdge(ctx, graph.EdgeSpec{SourceID: "it-a", TargetID: "it-missing", Type: "KNOWS"})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))
}

func TestCypherTraverseAndShortestPath(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	specs := make([]graph.NodeSpec, 0, 4)
	for _, id := range []string{"it-A", "it-B", "it-C", "it-D"} {
		specs = append(specs, graph.NodeSpec{ID: id, Labels: []string{"N"}, Properties: map[string]any{"name": id}})
	}
	_, err := b.BatchCreateNodes(ctx, specs)
	require.NoError(t, err)

	edges := make([]graph.EdgeSpec, 0, 3)
	for _, pair := range [][2]string{{"it-A", "it-B"}, {"it-B", "it-C"}, {"it-C", "it-D"}} {
		edges = append(edges, graph.EdgeSpec{SourceID: pair[0], TargetID: pair[1], Type: "NEXT"})
	}
	_, err = b.BatchCreateEdges(ctx, edges)
	require.NoError(t, err)

	nodes, err := b.Traverse(ctx, "it-A", graph.TraversalParams{MaxDepth: 2})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "it-B", nodes[0].ID)
	assert.Equal(t, 1, nodes[0].Depth)
	assert.Equal(t, []string{"it-A", "it-B"}, nodes[0].Path)
	assert.Equal(t, "it-C", nodes[1].ID)
	assert.Equal(t, 2, nodes[1].Depth)

	p, err := b.FindShortestPath(ctx, "it-A", "it-D", 5, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Length)

	none, err := b.FindShortestPath(ctx, "it-A", "it-D", 2, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCypherBatchIdempotentRetry(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	const total = 1500
	specs := make([]graph.NodeSpec, total)
	for i := range specs {
		specs[i] = graph.NodeSpec{
			ID:     fmt.Sprintf("it-bulk-%04d", i),
			Labels: []string{"Bulk"},
		}
	}

	nodes, err := b.BatchCreateNodes(ctx, specs)
	require.NoError(t, err)
	require.Len(t, nodes, total)

	_, err = b.BatchCreateNodes(ctx, specs[:200])
	require.NoError(t, err)

	count, err := b.CountNodes(ctx, graph.NodeFilter{Labels: []string{"Bulk"}})
	require.NoError(t, err)
	assert.Equal(t, int64(total), count)
}

func TestCypherRecreateReplacesLabels(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	_, err := b.CreateNode(ctx, graph.NodeSpec{ID: "it-relabel", Labels: []string{"Person"}, Properties: map[string]any{"name": "v1"}})
	require.NoError(t, err)

	recreated, err := b.CreateNode(ctx, graph.NodeSpec{ID: "it-relabel", Labels: []string{"Org"}, Properties: map[string]any{"name": "v2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Org"}, recreated.Labels)

	// One node per id even when the label set changes between creates.
	rows, err := b.ExecuteNativeQuery(ctx, "MATCH (n {id: $id}) RETURN count(n) AS total",
		map[string]any{"id": "it-relabel"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["total"])

	got, err := b.GetNode(ctx, "it-relabel")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Org"}, got.Labels)
	assert.Equal(t, "v2", got.Properties["name"])

	// Batch creation follows the same replace semantics.
	_, err = b.BatchCreateNodes(ctx, []graph.NodeSpec{{ID: "it-relabel", Labels: []string{"Archive"}}})
	require.NoError(t, err)
	got, err = b.GetNode(ctx, "it-relabel")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Archive"}, got.Labels)
}

func TestCypherTraversePathAnnotationDeterministic(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	// Two equal-depth routes from it-P to it-R.
	specs := make([]graph.NodeSpec, 0, 4)
	for _, id := range []string{"it-P", "it-Q1", "it-Q2", "it-R"} {
		specs = append(specs, graph.NodeSpec{ID: id, Labels: []string{"N"}, Properties: map[string]any{"name": id}})
	}
	_, err := b.BatchCreateNodes(ctx, specs)
	require.NoError(t, err)
	for _, pair := range [][2]string{{"it-P", "it-Q1"}, {"it-P", "it-Q2"}, {"it-Q1", "it-R"}, {"it-Q2", "it-R"}} {
		_, err := b.CreateEdge(ctx, graph.EdgeSpec{SourceID: pair[0], TargetID: pair[1], Type: "NEXT"})
		require.NoError(t, err)
	}

	first, err := b.Traverse(ctx, "it-P", graph.TraversalParams{MaxDepth: 2})
	require.NoError(t, err)
	for _, n := range first {
		if n.ID == "it-R" {
			assert.Equal(t, []string{"it-P", "it-Q1", "it-R"}, n.Path,
				"equal-depth routes break the tie on node ids")
		}
	}

	again, err := b.Traverse(ctx, "it-P", graph.TraversalParams{MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestCypherRejectsUnsafeSymbols(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	_, err := b.CreateNode(ctx, graph.NodeSpec{ID: "it-x", Labels: []string{"Bad Label`) DETACH DELETE (n"}})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))

	_, err = b.Traverse(ctx, "it-x", graph.TraversalParams{MaxDepth: 1, EdgeTypes: []string{"BAD|TYPE]"}})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))
}
