package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFootprint_Validate(t *testing.T) {
	assert.NoError(t, Footprint(1).Validate(8, 8))
	assert.NoError(t, Footprint(2).Validate(8, 8))
	assert.NoError(t, Footprint(2).Validate(2, 3))

	assert.ErrorIs(t, Footprint(0).Validate(8, 8), ErrInvalidFootprint)
	assert.ErrorIs(t, Footprint(9).Validate(8, 8), ErrInvalidFootprint)
	assert.ErrorIs(t, Footprint(3).Validate(3, 3), ErrInvalidFootprint)
}

func TestFootprint_Cells(t *testing.T) {
	assert.Equal(t, []Coordinate{{1, 1}}, Footprint(1).Cells(Coordinate{1, 1}))
	assert.Equal(t,
		[]Coordinate{{2, 3}, {3, 3}, {2, 4}, {3, 4}},
		Footprint(2).Cells(Coordinate{2, 3}))
}

func TestFootprint_GridChecks(t *testing.T) {
	g, err := ParseGrid([]string{
		"DD..",
		"DD*.",
		"...#",
		"...G",
	})
	require.NoError(t, err)
	fp := Footprint(2)

	assert.True(t, fp.InBounds(g, Coordinate{2, 2}))
	assert.False(t, fp.InBounds(g, Coordinate{3, 2}))
	assert.False(t, fp.InBounds(g, Coordinate{-1, 0}))

	assert.True(t, fp.IsClear(g, Coordinate{0, 0}), "agent cells are not obstacles")
	assert.False(t, fp.IsClear(g, Coordinate{1, 0}), "dynamic obstacle blocks")
	assert.False(t, fp.IsClear(g, Coordinate{2, 2}), "static obstacle blocks")
	assert.True(t, fp.IsClear(g, Coordinate{0, 2}))

	assert.True(t, fp.TouchesGoal(g, Coordinate{2, 2}))
	assert.False(t, fp.TouchesGoal(g, Coordinate{1, 2}))
	assert.Equal(t, Coordinate{2, 2}, fp.Target(g.W, g.H))

	assert.True(t, fp.Covers(Coordinate{2, 2}, Coordinate{3, 3}))
	assert.False(t, fp.Covers(Coordinate{2, 2}, Coordinate{1, 3}))
}

func TestFootprint_GoalDistance(t *testing.T) {
	goal := Coordinate{7, 7}

	assert.Equal(t, Coordinate{0, 0}.DistanceTo(goal), Footprint(1).GoalDistance(Coordinate{0, 0}, goal))
	assert.Zero(t, Footprint(1).GoalDistance(goal, goal))
	assert.Equal(t, 1.0, Footprint(1).GoalDistance(Coordinate{6, 7}, goal))

	fp := Footprint(2)
	assert.Zero(t, fp.GoalDistance(Coordinate{6, 6}, goal))
	assert.Equal(t, 1.0, fp.GoalDistance(Coordinate{5, 6}, goal))
	assert.InDelta(t, 6*1.41421356, fp.GoalDistance(Coordinate{0, 0}, goal), 1e-6)

	// A goal away from the corner is covered from either side.
	mid := Coordinate{3, 3}
	assert.Zero(t, fp.GoalDistance(Coordinate{2, 2}, mid))
	assert.Zero(t, fp.GoalDistance(Coordinate{3, 3}, mid))
	assert.Equal(t, 1.0, fp.GoalDistance(Coordinate{4, 3}, mid))
}
