package core

import (
	"fmt"
	"strings"
)

// Grid is the droplet routing map: a W×H array of cells stored row-major.
// Its shape is fixed at construction; only cell contents change.
type Grid struct {
	W, H  int
	cells []Cell
}

// NewGrid creates an empty grid with the agent at the origin and the goal
// in the bottom-right corner.
func NewGrid(w, h int) (*Grid, error) {
	if w <= 0 || h <= 0 || (w == 1 && h == 1) {
		return nil, fmt.Errorf("%dx%d: %w", w, h, ErrInvalidDimensions)
	}
	g := &Grid{W: w, H: h, cells: make([]Cell, w*h)}
	g.cells[0] = CellAgent
	g.cells[g.Idx(w-1, h-1)] = CellGoal
	return g, nil
}

func (g *Grid) Idx(x, y int) int      { return y*g.W + x }
func (g *Grid) XY(idx int) (int, int) { return idx % g.W, idx / g.W }

// InBounds checks if coordinates are within grid boundaries
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H
}

// Get returns the cell at (x, y)
func (g *Grid) Get(x, y int) (Cell, error) {
	if !g.InBounds(x, y) {
		return CellEmpty, fmt.Errorf("get (%d,%d) on %dx%d grid: %w", x, y, g.W, g.H, ErrOutOfBounds)
	}
	return g.cells[g.Idx(x, y)], nil
}

// Set overwrites the cell at (x, y)
func (g *Grid) Set(x, y int, c Cell) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("set (%d,%d) on %dx%d grid: %w", x, y, g.W, g.H, ErrOutOfBounds)
	}
	g.cells[g.Idx(x, y)] = c
	return nil
}

// At returns the cell at c and false when c is out of bounds
func (g *Grid) At(c Coordinate) (Cell, bool) {
	if !g.InBounds(c.X, c.Y) {
		return CellEmpty, false
	}
	return g.cells[g.Idx(c.X, c.Y)], true
}

// IsPassable is true iff the cell is Empty or Goal
func (g *Grid) IsPassable(x, y int) bool {
	return g.InBounds(x, y) && g.cells[g.Idx(x, y)].IsPassable()
}

func (g *Grid) IsObstacle(x, y int) bool {
	return g.InBounds(x, y) && g.cells[g.Idx(x, y)].IsObstacle()
}

func (g *Grid) IsDynamicObstacle(x, y int) bool {
	return g.InBounds(x, y) && g.cells[g.Idx(x, y)].IsDynamicObstacle()
}

func (g *Grid) IsStaticObstacle(x, y int) bool {
	return g.InBounds(x, y) && g.cells[g.Idx(x, y)].IsStaticObstacle()
}

// Strike applies a collision to (x, y) and reports whether a dynamic
// obstacle was converted.
func (g *Grid) Strike(x, y int) (bool, error) {
	if !g.InBounds(x, y) {
		return false, fmt.Errorf("strike (%d,%d) on %dx%d grid: %w", x, y, g.W, g.H, ErrOutOfBounds)
	}
	idx := g.Idx(x, y)
	next, struck := g.cells[idx].Strike()
	g.cells[idx] = next
	return struck, nil
}

// Goal returns the position of the first goal cell
func (g *Grid) Goal() (Coordinate, bool) {
	for i, c := range g.cells {
		if c == CellGoal {
			return FromIndex(i, g.W), true
		}
	}
	return Coordinate{}, false
}

// Count returns how many cells hold c
func (g *Grid) Count(c Cell) int {
	n := 0
	for _, cell := range g.cells {
		if cell == c {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants of an externally supplied map
func (g *Grid) Validate() error {
	if g.W <= 0 || g.H <= 0 || len(g.cells) != g.W*g.H {
		return fmt.Errorf("%dx%d with %d cells: %w", g.W, g.H, len(g.cells), ErrInvalidDimensions)
	}
	if n := g.Count(CellGoal); n != 1 {
		return fmt.Errorf("expected exactly one goal, found %d: %w", n, ErrInvalidMap)
	}
	return nil
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{W: g.W, H: g.H, cells: cells}
}

// Equal reports whether both grids have the same shape and contents
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.W != other.W || g.H != other.H {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Rows encodes the grid as one symbol string per row
func (g *Grid) Rows() []string {
	rows := make([]string, g.H)
	var sb strings.Builder
	for y := 0; y < g.H; y++ {
		sb.Reset()
		sb.Grow(g.W)
		for x := 0; x < g.W; x++ {
			sb.WriteRune(g.cells[g.Idx(x, y)].Symbol())
		}
		rows[y] = sb.String()
	}
	return rows
}

func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}

// ParseGrid builds a grid from symbol rows such as "D.#*" and "...G".
// All rows must have the same length and the map must hold one goal.
func ParseGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows: %w", ErrInvalidDimensions)
	}
	w := len([]rune(rows[0]))
	g := &Grid{W: w, H: len(rows), cells: make([]Cell, w*len(rows))}
	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != w {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(runes), w, ErrInvalidDimensions)
		}
		for x, r := range runes {
			c, err := ParseCell(r)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", y, x, err)
			}
			g.cells[g.Idx(x, y)] = c
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
