package core

import "fmt"

// Cell is the content of a single grid position.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellAgent
	CellGoal
	CellStaticObstacle
	CellDynamicObstacle
)

// Text symbols used by fixtures, map-set files and rendering.
const (
	SymbolEmpty           = '.'
	SymbolAgent           = 'D'
	SymbolGoal            = 'G'
	SymbolStaticObstacle  = '#'
	SymbolDynamicObstacle = '*'
)

// IsPassable reports whether the agent may move onto the cell.
func (c Cell) IsPassable() bool { return c == CellEmpty || c == CellGoal }

// IsObstacle reports whether the cell blocks connectivity searches.
func (c Cell) IsObstacle() bool { return c == CellStaticObstacle || c == CellDynamicObstacle }

func (c Cell) IsStaticObstacle() bool  { return c == CellStaticObstacle }
func (c Cell) IsDynamicObstacle() bool { return c == CellDynamicObstacle }
func (c Cell) IsGoal() bool            { return c == CellGoal }
func (c Cell) IsAgent() bool           { return c == CellAgent }

// Strike returns the cell after the agent collides with it. A dynamic
// obstacle becomes a static obstacle; every other cell is unchanged.
func (c Cell) Strike() (Cell, bool) {
	if c == CellDynamicObstacle {
		return CellStaticObstacle, true
	}
	return c, false
}

// Symbol returns the text symbol for the cell
func (c Cell) Symbol() rune {
	switch c {
	case CellEmpty:
		return SymbolEmpty
	case CellAgent:
		return SymbolAgent
	case CellGoal:
		return SymbolGoal
	case CellStaticObstacle:
		return SymbolStaticObstacle
	case CellDynamicObstacle:
		return SymbolDynamicObstacle
	default:
		return '?'
	}
}

func (c Cell) String() string {
	switch c {
	case CellEmpty:
		return "Empty"
	case CellAgent:
		return "Agent"
	case CellGoal:
		return "Goal"
	case CellStaticObstacle:
		return "StaticObstacle"
	case CellDynamicObstacle:
		return "DynamicObstacle"
	default:
		return fmt.Sprintf("Cell(%d)", uint8(c))
	}
}

// ParseCell converts a text symbol into a Cell
func ParseCell(r rune) (Cell, error) {
	switch r {
	case SymbolEmpty:
		return CellEmpty, nil
	case SymbolAgent:
		return CellAgent, nil
	case SymbolGoal:
		return CellGoal, nil
	case SymbolStaticObstacle:
		return CellStaticObstacle, nil
	case SymbolDynamicObstacle:
		return CellDynamicObstacle, nil
	default:
		return CellEmpty, fmt.Errorf("%q: %w", r, ErrInvalidCellSymbol)
	}
}
