package core

import (
	"fmt"
	"math"
)

// Footprint is the side length of the square block of cells a droplet
// covers. A position names the block's top-left cell. Size 1 is the
// single-cell agent.
type Footprint int

// Validate checks that the footprint fits a w×h grid without the start
// block already covering the goal corner.
func (f Footprint) Validate(w, h int) error {
	size := int(f)
	if size < 1 || size > w || size > h {
		return fmt.Errorf("size %d on %dx%d grid: %w", size, w, h, ErrInvalidFootprint)
	}
	if size == w && size == h {
		return fmt.Errorf("size %d covers the whole %dx%d grid: %w", size, w, h, ErrInvalidFootprint)
	}
	return nil
}

// Cells returns every cell covered by a block at pos, row by row
func (f Footprint) Cells(pos Coordinate) []Coordinate {
	size := int(f)
	cells := make([]Coordinate, 0, size*size)
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			cells = append(cells, Coordinate{X: pos.X + dx, Y: pos.Y + dy})
		}
	}
	return cells
}

// InBounds reports whether the whole block at pos lies on the grid
func (f Footprint) InBounds(g *Grid, pos Coordinate) bool {
	size := int(f)
	return pos.X >= 0 && pos.Y >= 0 && pos.X+size <= g.W && pos.Y+size <= g.H
}

// IsClear reports whether the block at pos is in bounds and free of
// static and dynamic obstacles.
func (f Footprint) IsClear(g *Grid, pos Coordinate) bool {
	if !f.InBounds(g, pos) {
		return false
	}
	for _, c := range f.Cells(pos) {
		if g.cells[g.Idx(c.X, c.Y)].IsObstacle() {
			return false
		}
	}
	return true
}

// Covers reports whether target lies inside the block at pos
func (f Footprint) Covers(pos, target Coordinate) bool {
	size := int(f)
	return target.X >= pos.X && target.X < pos.X+size &&
		target.Y >= pos.Y && target.Y < pos.Y+size
}

// TouchesGoal reports whether the block at pos covers a goal cell
func (f Footprint) TouchesGoal(g *Grid, pos Coordinate) bool {
	if !f.InBounds(g, pos) {
		return false
	}
	for _, c := range f.Cells(pos) {
		if g.cells[g.Idx(c.X, c.Y)] == CellGoal {
			return true
		}
	}
	return false
}

// Target returns the block position that covers the bottom-right goal corner
func (f Footprint) Target(w, h int) Coordinate {
	return Coordinate{X: w - int(f), Y: h - int(f)}
}

// GoalDistance is the Euclidean distance from pos to the nearest block
// position that covers goal. It is zero exactly when the block at pos
// covers goal; for size 1 it is the plain cell distance.
func (f Footprint) GoalDistance(pos, goal Coordinate) float64 {
	size := int(f)
	dx := gap(pos.X, goal.X-size+1, goal.X)
	dy := gap(pos.Y, goal.Y-size+1, goal.Y)
	return math.Hypot(float64(dx), float64(dy))
}

// gap is the distance from v to the closed interval [lo, hi]
func gap(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}
