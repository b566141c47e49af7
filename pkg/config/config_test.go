package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/factory"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, factory.TypePostgres, cfg.Backend.Type)
	assert.Equal(t, 0.5, cfg.Detection.MinConfidence)
	assert.Equal(t, 100, cfg.Detection.ContextWindow)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  type: cypher
  cypher:
    uri: bolt://graph.internal:7687
    username: neo4j
    password: secret
detection:
  min_confidence: 0.7
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, factory.TypeCypher, cfg.Backend.Type)
	require.NotNil(t, cfg.Backend.Cypher)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Backend.Cypher.URI)
	assert.Equal(t, 0.7, cfg.Detection.MinConfidence)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IB_BACKEND_TYPE", "postgres")
	t.Setenv("IB_POSTGRES_DSN", "postgres://env-host:5432/graph")
	t.Setenv("IB_MIN_CONFIDENCE", "0.9")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, factory.TypePostgres, cfg.Backend.Type)
	require.NotNil(t, cfg.Backend.Postgres)
	assert.Equal(t, "postgres://env-host:5432/graph", cfg.Backend.Postgres.DSN)
	assert.Equal(t, 0.9, cfg.Detection.MinConfidence)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/no/such/config.yaml")
	require.Error(t, err)
}
