package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/cypher"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/postgres"
)

func TestNewPostgresBackend(t *testing.T) {
	backend, err := New(Config{
		Type:     TypePostgres,
		Postgres: &postgres.Config{DSN: "postgres://localhost:5432/graph"},
	}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	assert.False(t, backend.IsConnected(context.Background()))
}

func TestNewCypherBackend(t *testing.T) {
	backend, err := New(Config{
		Type: TypeCypher,
		Cypher: &cypher.Config{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "secret",
		},
	}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	assert.False(t, backend.IsConnected(context.Background()))
}

func TestNewUnknownBackendFailsFast(t *testing.T) {
	_, err := New(Config{Type: "memgraph"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnknownBackend)
	assert.True(t, graph.IsConfiguration(err))
}

func TestNewMissingSection(t *testing.T) {
	_, err := New(Config{Type: TypePostgres}, nil, nil)
	require.Error(t, err)
	assert.True(t, graph.IsConfiguration(err))

	_, err = New(Config{Type: TypeCypher}, nil, nil)
	require.Error(t, err)
	assert.True(t, graph.IsConfiguration(err))
}

func TestNewInvalidSection(t *testing.T) {
	_, err := New(Config{Type: TypePostgres, Postgres: &postgres.Config{}}, nil, nil)
	require.Error(t, err)
	assert.True(t, graph.IsConfiguration(err))

	_, err = New(Config{Type: TypeCypher, Cypher: &cypher.Config{URI: "bolt://x"}}, nil, nil)
	require.Error(t, err)
	assert.True(t, graph.IsConfiguration(err))
}
