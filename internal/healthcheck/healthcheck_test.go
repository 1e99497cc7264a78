package healthcheck

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/internal/config"
	"github.com/sunxfancy/cpp-slicer/pkg/neo4jexport"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(context.Background(), nil, "", Options{})
	assert.Error(t, err)
}

func TestCheckFrontends(t *testing.T) {
	result, err := Check(context.Background(), config.DefaultConfig(), "", Options{})
	require.NoError(t, err)

	require.Len(t, result.Frontends, len(probes))
	for _, f := range result.Frontends {
		assert.Equal(t, StatusReady, f.Status, "%s: %s", f.Name, f.Error)
	}
	assert.Equal(t, StatusSkipped, result.Neo4j.Status)
	assert.False(t, result.Failed())
}

func TestCheckNeo4j(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		ping   error
		status string
	}{
		{name: "reachable", uri: "neo4j://db:7687", status: StatusReady},
		{name: "unreachable", uri: "neo4j://db:7687", ping: errors.New("connection refused"), status: StatusError},
		{name: "unconfigured", uri: "", status: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Neo4j.URI = tt.uri

			var got neo4jexport.Config
			result, err := Check(context.Background(), cfg, "", Options{
				CheckNeo4j: true,
				Ping: func(ctx context.Context, c neo4jexport.Config) error {
					got = c
					return tt.ping
				},
			})
			require.NoError(t, err)

			assert.Equal(t, tt.status, result.Neo4j.Status)
			assert.Equal(t, tt.status == StatusError, result.Failed())
			if tt.uri != "" {
				assert.Equal(t, tt.uri, got.URI)
				assert.Equal(t, cfg.Neo4j.User, got.User)
			}
		})
	}
}

func TestScopeFromPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "", scopeFromPath(""))
	assert.Equal(t, "global", scopeFromPath(filepath.Join(home, ".slicer", "config.yaml")))
	assert.Equal(t, "project", scopeFromPath(".slicer/config.toml"))
}

func TestDefaultEffectivePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	assert.Equal(t, "", DefaultEffectivePath())

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Save(".slicer/config.toml"))
	assert.Equal(t, ".slicer/config.toml", DefaultEffectivePath())
}
