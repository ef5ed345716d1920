package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_IndexRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		index int
		width int
		coord Coordinate
	}{
		{"TopLeft", 0, 8, Coordinate{0, 0}},
		{"TopRight", 7, 8, Coordinate{7, 0}},
		{"SecondRow", 8, 8, Coordinate{0, 1}},
		{"BottomRight", 63, 8, Coordinate{7, 7}},
		{"Rectangular", 7, 4, Coordinate{3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.coord, FromIndex(tt.index, tt.width))
			assert.Equal(t, tt.index, tt.coord.ToIndex(tt.width))
		})
	}
}

func TestCoordinate_IsValid(t *testing.T) {
	assert.True(t, NewCoordinate(0, 0).IsValid(3, 2))
	assert.True(t, NewCoordinate(2, 1).IsValid(3, 2))
	assert.False(t, NewCoordinate(3, 1).IsValid(3, 2))
	assert.False(t, NewCoordinate(2, 2).IsValid(3, 2))
	assert.False(t, NewCoordinate(-1, 0).IsValid(3, 2))
}

func TestCoordinate_Distances(t *testing.T) {
	a := NewCoordinate(0, 0)
	b := NewCoordinate(3, 4)

	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
	assert.InDelta(t, 5.0, b.DistanceTo(a), 1e-9)
	assert.Equal(t, 0.0, b.DistanceTo(b))
	assert.Equal(t, 7, a.ManhattanDistanceTo(b))
}

func TestCoordinate_NeighborsOrder(t *testing.T) {
	c := NewCoordinate(2, 2)
	neighbors := c.Neighbors()
	require.Len(t, neighbors, 4)

	for i, d := range Directions {
		assert.Equal(t, c.Move(d), neighbors[i], "neighbor %d should follow %s", i, d)
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		dir    Direction
		name   string
		vector Coordinate
	}{
		{North, "North", Coordinate{0, -1}},
		{East, "East", Coordinate{1, 0}},
		{South, "South", Coordinate{0, 1}},
		{West, "West", Coordinate{-1, 0}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Direction(i), tt.dir, "action ids follow N,E,S,W")
			assert.Equal(t, tt.name, tt.dir.String())
			assert.Equal(t, tt.vector, tt.dir.Vector())
			assert.True(t, tt.dir.IsValid())

			from := NewCoordinate(5, 5)
			assert.Equal(t, tt.dir, from.DirectionTo(from.Move(tt.dir)))
		})
	}

	assert.Equal(t, Direction(-1), NewCoordinate(0, 0).DirectionTo(NewCoordinate(1, 1)))
	assert.Equal(t, Direction(-1), NewCoordinate(0, 0).DirectionTo(NewCoordinate(0, 0)))
}

func TestParseDirection(t *testing.T) {
	for i := 0; i < NumDirections; i++ {
		d, err := ParseDirection(i)
		require.NoError(t, err)
		assert.Equal(t, Direction(i), d)
	}

	for _, bad := range []int{-1, 4, 100} {
		_, err := ParseDirection(bad)
		assert.ErrorIs(t, err, ErrInvalidAction, "action %d", bad)
	}

	assert.Equal(t, Coordinate{}, Direction(9).Vector())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}
