package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"small grid", 5, 5},
		{"rectangular grid", 10, 20},
		{"single row", 2, 1},
		{"single column", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.width, tt.height)
			require.NoError(t, err)

			assert.Equal(t, tt.width, g.W)
			assert.Equal(t, tt.height, g.H)
			assert.Equal(t, 1, g.Count(CellAgent))
			assert.Equal(t, 1, g.Count(CellGoal))
			assert.Equal(t, tt.width*tt.height-2, g.Count(CellEmpty))

			origin, err := g.Get(0, 0)
			require.NoError(t, err)
			assert.Equal(t, CellAgent, origin)

			goal, ok := g.Goal()
			require.True(t, ok)
			assert.Equal(t, Coordinate{X: tt.width - 1, Y: tt.height - 1}, goal)
		})
	}
}

func TestNewGrid_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"zero width", 0, 5},
		{"zero height", 5, 0},
		{"negative width", -1, 5},
		{"negative height", 5, -3},
		{"origin equals goal", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.width, tt.height)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrInvalidDimensions)
		})
	}
}

func TestGrid_GetSet(t *testing.T) {
	g, err := NewGrid(4, 3)
	require.NoError(t, err)

	require.NoError(t, g.Set(2, 1, CellStaticObstacle))
	c, err := g.Get(2, 1)
	require.NoError(t, err)
	assert.Equal(t, CellStaticObstacle, c)

	t.Run("out of bounds", func(t *testing.T) {
		coords := [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 3}, {10, 10}}
		for _, xy := range coords {
			_, err := g.Get(xy[0], xy[1])
			assert.ErrorIs(t, err, ErrOutOfBounds, "Get(%d,%d)", xy[0], xy[1])
			assert.ErrorIs(t, g.Set(xy[0], xy[1], CellEmpty), ErrOutOfBounds, "Set(%d,%d)", xy[0], xy[1])
		}
	})
}

func TestGrid_Predicates(t *testing.T) {
	g, err := ParseGrid([]string{
		"D#*",
		"..G",
	})
	require.NoError(t, err)

	assert.False(t, g.IsPassable(0, 0), "agent cell is not a move target")
	assert.False(t, g.IsPassable(1, 0))
	assert.False(t, g.IsPassable(2, 0))
	assert.True(t, g.IsPassable(0, 1))
	assert.True(t, g.IsPassable(2, 1), "goal is passable")
	assert.False(t, g.IsPassable(3, 1), "out of bounds is never passable")

	assert.True(t, g.IsStaticObstacle(1, 0))
	assert.False(t, g.IsStaticObstacle(2, 0))
	assert.True(t, g.IsDynamicObstacle(2, 0))
	assert.False(t, g.IsDynamicObstacle(1, 0))
	assert.True(t, g.IsObstacle(1, 0))
	assert.True(t, g.IsObstacle(2, 0))
	assert.False(t, g.IsObstacle(-1, 0))
}

func TestGrid_Strike(t *testing.T) {
	g, err := ParseGrid([]string{
		"D*",
		"#G",
	})
	require.NoError(t, err)

	struck, err := g.Strike(1, 0)
	require.NoError(t, err)
	assert.True(t, struck)
	assert.True(t, g.IsStaticObstacle(1, 0))

	struck, err = g.Strike(1, 0)
	require.NoError(t, err)
	assert.False(t, struck, "a struck obstacle stays static")
	assert.True(t, g.IsStaticObstacle(1, 0))

	struck, err = g.Strike(1, 1)
	require.NoError(t, err)
	assert.False(t, struck)
	assert.True(t, g.IsPassable(1, 1), "striking the goal is a no-op")

	_, err = g.Strike(5, 5)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGrid_Clone(t *testing.T) {
	g, err := NewGrid(3, 3)
	require.NoError(t, err)

	clone := g.Clone()
	assert.True(t, g.Equal(clone))

	require.NoError(t, clone.Set(1, 1, CellDynamicObstacle))
	assert.False(t, g.Equal(clone))
	c, _ := g.Get(1, 1)
	assert.Equal(t, CellEmpty, c, "mutating the clone must not touch the original")
}

func TestParseGrid(t *testing.T) {
	rows := []string{
		"D..*",
		".#..",
		"*..G",
	}
	g, err := ParseGrid(rows)
	require.NoError(t, err)
	assert.Equal(t, 4, g.W)
	assert.Equal(t, 3, g.H)
	assert.Equal(t, rows, g.Rows())
	assert.Equal(t, "D..*\n.#..\n*..G", g.String())

	t.Run("ragged rows", func(t *testing.T) {
		_, err := ParseGrid([]string{"D..", "G."})
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := ParseGrid([]string{"D?", ".G"})
		assert.ErrorIs(t, err, ErrInvalidCellSymbol)
	})

	t.Run("no goal", func(t *testing.T) {
		_, err := ParseGrid([]string{"D.", ".."})
		assert.ErrorIs(t, err, ErrInvalidMap)
	})

	t.Run("two goals", func(t *testing.T) {
		_, err := ParseGrid([]string{"DG", ".G"})
		assert.ErrorIs(t, err, ErrInvalidMap)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseGrid(nil)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
}
