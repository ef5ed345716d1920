package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

// MustParseGrid parses rows in the grid text format or fails the test
func MustParseGrid(t testing.TB, rows ...string) *core.Grid {
	t.Helper()
	g, err := core.ParseGrid(rows)
	require.NoError(t, err)
	return g
}

// TestEnvConfig returns a deterministic, silent environment configuration
func TestEnvConfig(w, h int, p float64) game.Config {
	cfg := game.DefaultConfig(w, h)
	cfg.ObstacleProb = p
	cfg.Rng = NewTestRNG(DefaultSeed)
	cfg.Logger = NopLogger()
	cfg.EnvID = "test-env"
	return cfg
}

// NewTestEnvironment builds an environment from TestEnvConfig. Options are
// applied to the configuration before construction.
func NewTestEnvironment(t testing.TB, w, h int, p float64, opts ...func(*game.Config)) *game.Environment {
	t.Helper()
	cfg := TestEnvConfig(w, h, p)
	for _, opt := range opts {
		opt(&cfg)
	}
	env, err := game.NewEnvironment(cfg)
	require.NoError(t, err)
	return env
}
