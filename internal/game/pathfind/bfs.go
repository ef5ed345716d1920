// Package pathfind implements the breadth-first connectivity search used to
// validate generated maps and to compute shortest-path baselines.
package pathfind

import (
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

// GoalPredicate decides whether a droplet positioned at pos has reached the goal
type GoalPredicate func(g *core.Grid, pos core.Coordinate) bool

// CellIsGoal is the single-cell goal test
func CellIsGoal(g *core.Grid, pos core.Coordinate) bool {
	c, ok := g.At(pos)
	return ok && c.IsGoal()
}

// FootprintTouchesGoal returns a goal test for a size×size droplet
func FootprintTouchesGoal(size core.Footprint) GoalPredicate {
	return func(g *core.Grid, pos core.Coordinate) bool {
		return size.TouchesGoal(g, pos)
	}
}

// node is one frontier entry. prev indexes the node it was reached from,
// -1 for the start.
type node struct {
	pos  core.Coordinate
	prev int
}

// FindPath searches for a path of non-obstacle cells from start to a cell
// satisfying isGoal. The returned path includes start and has the minimum
// number of edges. The grid is never modified.
func FindPath(g *core.Grid, start core.Coordinate, isGoal GoalPredicate) ([]core.Coordinate, bool) {
	return FindFootprintPath(g, start, 1, isGoal)
}

// FindFootprintPath is FindPath for a droplet covering a size×size block.
// A position is open when the whole block is in bounds and obstacle-free.
func FindFootprintPath(g *core.Grid, start core.Coordinate, size core.Footprint, isGoal GoalPredicate) ([]core.Coordinate, bool) {
	if !size.InBounds(g, start) {
		return nil, false
	}

	seen := make([]bool, g.W*g.H)
	seen[g.Idx(start.X, start.Y)] = true

	// The queue doubles as the predecessor table; head marks the frontier.
	queue := make([]node, 0, g.W*g.H)
	queue = append(queue, node{pos: start, prev: -1})

	for head := 0; head < len(queue); head++ {
		current := queue[head].pos
		if isGoal(g, current) {
			return backtrack(queue, head), true
		}

		for _, next := range current.Neighbors() {
			if !size.InBounds(g, next) {
				continue
			}
			idx := g.Idx(next.X, next.Y)
			if seen[idx] || !size.IsClear(g, next) {
				continue
			}
			seen[idx] = true
			queue = append(queue, node{pos: next, prev: head})
		}
	}

	return nil, false
}

func backtrack(queue []node, last int) []core.Coordinate {
	length := 0
	for i := last; i >= 0; i = queue[i].prev {
		length++
	}
	path := make([]core.Coordinate, length)
	for i := last; i >= 0; i = queue[i].prev {
		length--
		path[length] = queue[i].pos
	}
	return path
}

// IsSolvable reports whether a size×size droplet at start can reach the goal
func IsSolvable(g *core.Grid, start core.Coordinate, size core.Footprint) bool {
	_, ok := FindFootprintPath(g, start, size, FootprintTouchesGoal(size))
	return ok
}

// ShortestPathLength returns the number of moves on the shortest route
// from start to the goal, or false when the goal is unreachable.
func ShortestPathLength(g *core.Grid, start core.Coordinate, size core.Footprint) (int, bool) {
	path, ok := FindFootprintPath(g, start, size, FootprintTouchesGoal(size))
	if !ok {
		return 0, false
	}
	return len(path) - 1, true
}

// Directions converts a path into the moves that walk it
func Directions(path []core.Coordinate) []core.Direction {
	if len(path) < 2 {
		return nil
	}
	moves := make([]core.Direction, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		moves = append(moves, path[i-1].DirectionTo(path[i]))
	}
	return moves
}
