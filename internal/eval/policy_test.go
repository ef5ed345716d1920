package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/testutil"
)

// corridorRows has a single visible shortest route that runs into a hidden
// dynamic obstacle.
var corridorRows = []string{
	"D*.G",
	".#..",
	"....",
}

func playEpisode(t *testing.T, env *game.Environment, policy Policy) game.EpisodeSummary {
	t.Helper()
	for !env.Done() {
		_, err := env.Step(policy.Act(env))
		require.NoError(t, err)
	}
	return env.Summary()
}

func TestRandomPolicy_OnlyLegalMoves(t *testing.T) {
	env := testutil.NewTestEnvironment(t, 4, 4, 1.0)
	policy := NewRandomPolicy(testutil.NewTestRNG(testutil.DefaultSeed))
	assert.Equal(t, "random", policy.Name())

	seen := map[core.Direction]int{}
	for i := 0; i < 100; i++ {
		seen[policy.Act(env)]++
	}
	assert.Zero(t, seen[core.North])
	assert.Zero(t, seen[core.West])
	assert.Positive(t, seen[core.East])
	assert.Positive(t, seen[core.South])
}

func TestOraclePolicy_OpenGrid(t *testing.T) {
	env := testutil.NewTestEnvironment(t, 8, 8, 1.0)
	policy := NewOraclePolicy(true)
	assert.Equal(t, "oracle", policy.Name())

	summary := playEpisode(t, env, policy)
	assert.Equal(t, "goal", string(summary.Outcome))
	assert.Equal(t, 14, summary.Steps)
	assert.Equal(t, 14, summary.OptimalLength)
	assert.Zero(t, summary.Collisions)
	assert.Zero(t, policy.Replans())
}

func TestOraclePolicy_Omniscient(t *testing.T) {
	env := testutil.NewTestEnvironment(t, 4, 3, 1.0)
	_, err := env.Reset(testutil.MustParseGrid(t, corridorRows...))
	require.NoError(t, err)

	summary := playEpisode(t, env, NewOraclePolicy(true))
	assert.Equal(t, "goal", string(summary.Outcome))
	assert.Equal(t, 7, summary.OptimalLength)
	assert.Equal(t, 7, summary.Steps)
	assert.Zero(t, summary.Collisions)
}

func TestOraclePolicy_ReplansAfterCollision(t *testing.T) {
	env := testutil.NewTestEnvironment(t, 4, 3, 1.0)
	_, err := env.Reset(testutil.MustParseGrid(t, corridorRows...))
	require.NoError(t, err)

	policy := NewOraclePolicy(false)
	assert.Equal(t, "observed-oracle", policy.Name())

	assert.Equal(t, core.East, policy.Act(env), "the dynamic obstacle is invisible")
	result, err := env.Step(core.East)
	require.NoError(t, err)
	require.NotNil(t, result.Collision)
	assert.Equal(t, core.Coordinate{}, result.Position)

	summary := playEpisode(t, env, policy)
	assert.Equal(t, "goal", string(summary.Outcome))
	assert.Equal(t, 8, summary.Steps)
	assert.Equal(t, 1, summary.Collisions)
	assert.Equal(t, 1, policy.Replans())
}

func TestObservedGrid(t *testing.T) {
	env := testutil.NewTestEnvironment(t, 4, 3, 1.0)
	_, err := env.Reset(testutil.MustParseGrid(t, corridorRows...))
	require.NoError(t, err)

	g := ObservedGrid(env.Observe())
	require.NotNil(t, g)
	assert.Equal(t, []string{
		"...G",
		".#..",
		"....",
	}, g.Rows())
}

func TestObservedGrid_GoalAwayFromCorner(t *testing.T) {
	rows := []string{
		"D#G.",
		".#..",
		".#..",
		"....",
	}
	env := testutil.NewTestEnvironment(t, 4, 4, 1.0)
	_, err := env.Reset(testutil.MustParseGrid(t, rows...))
	require.NoError(t, err)

	g := ObservedGrid(env.Observe())
	require.NotNil(t, g)
	assert.Equal(t, 1, g.Count(core.CellGoal))
	assert.Equal(t, []string{
		".#G.",
		".#..",
		".#..",
		"....",
	}, g.Rows())

	policy := NewOraclePolicy(false)
	summary := playEpisode(t, env, policy)
	assert.Equal(t, "goal", string(summary.Outcome))
	assert.Equal(t, 8, summary.OptimalLength)
	assert.Equal(t, 8, summary.Steps)
	assert.Zero(t, policy.Replans())
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"random", "oracle", "observed-oracle"} {
		factory, err := PolicyByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, factory(testutil.NewTestRNG(testutil.DefaultSeed)).Name())
	}

	_, err := PolicyByName("greedy")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
