package core

import (
	"fmt"
	"math"
)

// Coordinate represents a position on the grid
type Coordinate struct {
	X, Y int
}

// NewCoordinate creates a new coordinate with the given x and y values
func NewCoordinate(x, y int) Coordinate {
	return Coordinate{X: x, Y: y}
}

// FromIndex creates a coordinate from a grid array index using row-major ordering
func FromIndex(idx, width int) Coordinate {
	return Coordinate{
		X: idx % width,
		Y: idx / width,
	}
}

// IsValid checks if the coordinate is within the given bounds
func (c Coordinate) IsValid(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// ToIndex converts the coordinate to a grid array index using row-major ordering
func (c Coordinate) ToIndex(width int) int {
	return c.Y*width + c.X
}

// DistanceTo calculates the Euclidean distance to another coordinate
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return math.Hypot(float64(c.X-other.X), float64(c.Y-other.Y))
}

// ManhattanDistanceTo calculates the Manhattan distance to another coordinate
func (c Coordinate) ManhattanDistanceTo(other Coordinate) int {
	dx := c.X - other.X
	dy := c.Y - other.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Neighbors returns the four orthogonal neighbors of this coordinate in
// North, East, South, West order.
func (c Coordinate) Neighbors() []Coordinate {
	return []Coordinate{
		{X: c.X, Y: c.Y - 1}, // North
		{X: c.X + 1, Y: c.Y}, // East
		{X: c.X, Y: c.Y + 1}, // South
		{X: c.X - 1, Y: c.Y}, // West
	}
}

// Add returns a new coordinate that is the sum of this coordinate and another
func (c Coordinate) Add(other Coordinate) Coordinate {
	return Coordinate{
		X: c.X + other.X,
		Y: c.Y + other.Y,
	}
}

// Equal checks if two coordinates are equal
func (c Coordinate) Equal(other Coordinate) bool {
	return c.X == other.X && c.Y == other.Y
}

// String returns a string representation of the coordinate
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Direction represents a cardinal direction. Its value doubles as the
// action id exchanged with the agent.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// NumDirections is the size of the action space
const NumDirections = 4

// Directions lists every direction in action-id order
var Directions = [NumDirections]Direction{North, East, South, West}

var directionVectors = [NumDirections]Coordinate{
	North: {X: 0, Y: -1},
	East:  {X: 1, Y: 0},
	South: {X: 0, Y: 1},
	West:  {X: -1, Y: 0},
}

// ParseDirection converts an action id into a Direction
func ParseDirection(action int) (Direction, error) {
	d := Direction(action)
	if !d.IsValid() {
		return 0, fmt.Errorf("action %d: %w", action, ErrInvalidAction)
	}
	return d, nil
}

// IsValid reports whether d is one of the four cardinal directions
func (d Direction) IsValid() bool {
	return d >= North && d <= West
}

// Vector returns the unit displacement for d
func (d Direction) Vector() Coordinate {
	if !d.IsValid() {
		return Coordinate{}
	}
	return directionVectors[d]
}

func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Move returns a new coordinate moved one step in the given direction
func (c Coordinate) Move(direction Direction) Coordinate {
	return c.Add(direction.Vector())
}

// DirectionTo returns the direction from this coordinate to an adjacent coordinate.
// Returns -1 if the coordinates are not adjacent.
func (c Coordinate) DirectionTo(other Coordinate) Direction {
	dx := other.X - c.X
	dy := other.Y - c.Y

	switch {
	case dx == 0 && dy == -1:
		return North
	case dx == 1 && dy == 0:
		return East
	case dx == 0 && dy == 1:
		return South
	case dx == -1 && dy == 0:
		return West
	default:
		return -1
	}
}
