package mapgen

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/pathfind"
)

// ErrGenerationExhausted is returned when no solvable map was sampled
// within MaxAttempts tries.
var ErrGenerationExhausted = errors.New("map generation exhausted")

// DefaultMaxAttempts caps the resample loop
const DefaultMaxAttempts = 10000

// MapConfig holds configuration for map generation
type MapConfig struct {
	Width  int
	Height int
	// ObstacleProb is the probability a cell is sampled traversable. The
	// remainder is split evenly between static and dynamic obstacles.
	ObstacleProb float64
	DropletSize  core.Footprint
	MaxAttempts  int
}

// DefaultMapConfig returns the configuration used for training maps
func DefaultMapConfig(w, h int) MapConfig {
	return MapConfig{
		Width:        w,
		Height:       h,
		ObstacleProb: 0.9,
		DropletSize:  1,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// Validate checks the configuration before any sampling happens
func (c MapConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || (c.Width == 1 && c.Height == 1) {
		return fmt.Errorf("%dx%d: %w", c.Width, c.Height, core.ErrInvalidDimensions)
	}
	if c.ObstacleProb < 0 || c.ObstacleProb > 1 {
		return fmt.Errorf("obstacle probability %v must be within [0,1]", c.ObstacleProb)
	}
	if err := c.DropletSize.Validate(c.Width, c.Height); err != nil {
		return err
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts %d must be positive", c.MaxAttempts)
	}
	return nil
}

// Generator samples solvable maps with an injected RNG
type Generator struct {
	config MapConfig
	rng    *rand.Rand
}

// NewGenerator creates a new map generator
func NewGenerator(config MapConfig, rng *rand.Rand) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid map config: %w", err)
	}
	if rng == nil {
		return nil, errors.New("map generator requires a random source")
	}
	return &Generator{
		config: config,
		rng:    rng,
	}, nil
}

// Config returns the generator configuration
func (g *Generator) Config() MapConfig { return g.config }

// GenerateMap samples grids until one connects the origin to the goal
func (g *Generator) GenerateMap() (*core.Grid, error) {
	grid, _, err := g.generate()
	return grid, err
}

// GenerateMapWithAttempts is GenerateMap that also reports how many grids
// were sampled.
func (g *Generator) GenerateMapWithAttempts() (*core.Grid, int, error) {
	return g.generate()
}

func (g *Generator) generate() (*core.Grid, int, error) {
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		grid := g.sample()
		if pathfind.IsSolvable(grid, core.Coordinate{}, g.config.DropletSize) {
			return grid, attempt, nil
		}
	}
	return nil, g.config.MaxAttempts, fmt.Errorf("%dx%d at p=%v after %d attempts: %w",
		g.config.Width, g.config.Height, g.config.ObstacleProb, g.config.MaxAttempts, ErrGenerationExhausted)
}

// sample draws one grid without checking connectivity
func (g *Generator) sample() *core.Grid {
	grid, _ := core.NewGrid(g.config.Width, g.config.Height)

	p := g.config.ObstacleProb
	staticCut := p + (1-p)/2
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			r := g.rng.Float64()
			cell := core.CellEmpty
			switch {
			case r < p:
				cell = core.CellEmpty
			case r < staticCut:
				cell = core.CellStaticObstacle
			default:
				cell = core.CellDynamicObstacle
			}
			_ = grid.Set(x, y, cell)
		}
	}

	for _, c := range g.config.DropletSize.Cells(core.Coordinate{}) {
		_ = grid.Set(c.X, c.Y, core.CellAgent)
	}
	_ = grid.Set(grid.W-1, grid.H-1, core.CellGoal)

	return grid
}
