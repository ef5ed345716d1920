// Package processor resolves a single droplet move against the grid:
// plain moves, dynamic-obstacle strikes and blocked moves.
package processor

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

// MoveKind classifies how a move resolved
type MoveKind int

const (
	// MoveApplied - droplet moved onto open cells
	MoveApplied MoveKind = iota
	// MoveStruck - target held dynamic obstacles, which became static
	MoveStruck
	// MoveBlocked - out of bounds or static obstacle, nothing changed
	MoveBlocked
)

func (k MoveKind) String() string {
	switch k {
	case MoveApplied:
		return "applied"
	case MoveStruck:
		return "struck"
	case MoveBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

// MoveResult describes the outcome of one move
type MoveResult struct {
	Kind MoveKind
	From core.Coordinate
	// To is the droplet position after the move
	To core.Coordinate
	// Target is the attempted position; for a strike it is the collision position
	Target core.Coordinate
	// Struck lists the cells converted from dynamic to static obstacles
	Struck []core.Coordinate
}

// Collided reports whether the move hit dynamic obstacles
func (r MoveResult) Collided() bool { return r.Kind == MoveStruck }

// MoveProcessor applies droplet moves to a grid
type MoveProcessor struct {
	logger zerolog.Logger
}

// NewMoveProcessor creates a new move processor
func NewMoveProcessor(logger zerolog.Logger) *MoveProcessor {
	return &MoveProcessor{
		logger: logger.With().Str("component", "MoveProcessor").Logger(),
	}
}

// Apply moves a size×size droplet at pos one cell in dir. Only cells the
// block does not already cover are checked, so a block may slide over
// itself. The grid is mutated in place.
func (mp *MoveProcessor) Apply(g *core.Grid, pos core.Coordinate, size core.Footprint, dir core.Direction) (MoveResult, error) {
	if !dir.IsValid() {
		return MoveResult{}, fmt.Errorf("direction %d: %w", int(dir), core.ErrInvalidAction)
	}

	target := pos.Move(dir)
	result := MoveResult{Kind: MoveBlocked, From: pos, To: pos, Target: target}

	if !size.InBounds(g, target) {
		mp.logger.Debug().Str("from", pos.String()).Str("direction", dir.String()).Msg("Move blocked by grid edge")
		return result, nil
	}

	var entering []core.Coordinate
	for _, c := range size.Cells(target) {
		if !size.Covers(pos, c) {
			entering = append(entering, c)
		}
	}

	var dynamic []core.Coordinate
	open := true
	for _, c := range entering {
		cell, _ := g.Get(c.X, c.Y)
		if cell.IsDynamicObstacle() {
			dynamic = append(dynamic, c)
		}
		if !cell.IsPassable() {
			open = false
		}
	}

	switch {
	case open:
		for _, c := range size.Cells(pos) {
			if !size.Covers(target, c) {
				if err := g.Set(c.X, c.Y, core.CellEmpty); err != nil {
					return result, err
				}
			}
		}
		for _, c := range entering {
			if err := g.Set(c.X, c.Y, core.CellAgent); err != nil {
				return result, err
			}
		}
		result.Kind = MoveApplied
		result.To = target

	case len(dynamic) > 0:
		for _, c := range dynamic {
			if _, err := g.Strike(c.X, c.Y); err != nil {
				return result, err
			}
		}
		result.Kind = MoveStruck
		result.Struck = dynamic
		mp.logger.Debug().
			Str("from", pos.String()).
			Str("collision", target.String()).
			Int("struck_cells", len(dynamic)).
			Msg("Dynamic obstacle struck")

	default:
		mp.logger.Debug().Str("from", pos.String()).Str("direction", dir.String()).Msg("Move blocked by static obstacle")
	}

	return result, nil
}
