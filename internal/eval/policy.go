package eval

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/pathfind"
)

// EnvView is the part of an environment a policy may look at
type EnvView interface {
	Observe() game.Observation
	Position() core.Coordinate
	ActionMask() [core.NumDirections]bool
	Grid() *core.Grid
	Config() game.Config
}

// Policy chooses the next action for an environment
type Policy interface {
	Name() string
	Act(env EnvView) core.Direction
}

// PolicyFactory builds a fresh policy for one episode
type PolicyFactory func(rng *rand.Rand) Policy

// RandomPolicy picks uniformly among the moves not visibly blocked
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a random policy
func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{rng: rng}
}

func (p *RandomPolicy) Name() string { return "random" }

func (p *RandomPolicy) Act(env EnvView) core.Direction {
	mask := env.ActionMask()
	legal := make([]core.Direction, 0, core.NumDirections)
	for _, dir := range core.Directions {
		if mask[dir] {
			legal = append(legal, dir)
		}
	}
	if len(legal) == 0 {
		return core.Directions[p.rng.Intn(core.NumDirections)]
	}
	return legal[p.rng.Intn(len(legal))]
}

// OraclePolicy follows a breadth-first shortest path to the goal. An
// omniscient oracle plans over the true grid and never collides; otherwise
// it plans over the observation, where unstruck dynamic obstacles are
// invisible, and re-plans whenever a move did not go where it expected.
type OraclePolicy struct {
	omniscient bool
	plan       []core.Direction
	expected   core.Coordinate
	planned    bool
	replans    int
}

// NewOraclePolicy creates an oracle policy
func NewOraclePolicy(omniscient bool) *OraclePolicy {
	return &OraclePolicy{omniscient: omniscient}
}

func (p *OraclePolicy) Name() string {
	if p.omniscient {
		return "oracle"
	}
	return "observed-oracle"
}

// Replans returns how many times the plan was rebuilt after the first one
func (p *OraclePolicy) Replans() int { return p.replans }

func (p *OraclePolicy) Act(env EnvView) core.Direction {
	pos := env.Position()
	if !p.planned || len(p.plan) == 0 || pos != p.expected {
		if p.planned {
			p.replans++
		}
		p.replan(env, pos)
	}

	if len(p.plan) == 0 {
		return fallback(env)
	}

	dir := p.plan[0]
	p.plan = p.plan[1:]
	p.expected = pos.Move(dir)
	return dir
}

func (p *OraclePolicy) replan(env EnvView, pos core.Coordinate) {
	p.planned = true
	size := env.Config().DropletSize

	grid := env.Grid()
	if !p.omniscient {
		grid = ObservedGrid(env.Observe())
	}

	path, ok := pathfind.FindFootprintPath(grid, pos, size, pathfind.FootprintTouchesGoal(size))
	if !ok {
		p.plan = nil
		return
	}
	p.plan = pathfind.Directions(path)
}

// fallback moves toward the bottom-right corner when no route is known
func fallback(env EnvView) core.Direction {
	mask := env.ActionMask()
	for _, dir := range []core.Direction{core.East, core.South, core.North, core.West} {
		if mask[dir] {
			return dir
		}
	}
	return core.East
}

// ObservedGrid rebuilds the grid an agent can infer from an observation.
// Unstruck dynamic obstacles are not observable and appear empty.
func ObservedGrid(obs game.Observation) *core.Grid {
	grid, err := core.NewGrid(obs.Width, obs.Height)
	if err != nil {
		return nil
	}
	// Only the observed goal counts, wherever it is
	_ = grid.Set(0, 0, core.CellEmpty)
	_ = grid.Set(obs.Width-1, obs.Height-1, core.CellEmpty)
	for x := 0; x < obs.Width; x++ {
		for y := 0; y < obs.Height; y++ {
			switch {
			case obs.At(x, y, game.ChannelStatic) > 0:
				_ = grid.Set(x, y, core.CellStaticObstacle)
			case obs.At(x, y, game.ChannelGoal) > 0:
				_ = grid.Set(x, y, core.CellGoal)
			}
		}
	}
	return grid
}

// ErrUnknownPolicy is returned by PolicyByName for unregistered names
var ErrUnknownPolicy = errors.New("unknown policy")

// PolicyByName returns the factory for "random", "oracle" or
// "observed-oracle".
func PolicyByName(name string) (PolicyFactory, error) {
	switch name {
	case "random":
		return func(rng *rand.Rand) Policy { return NewRandomPolicy(rng) }, nil
	case "oracle":
		return func(*rand.Rand) Policy { return NewOraclePolicy(true) }, nil
	case "observed-oracle":
		return func(*rand.Rand) Policy { return NewOraclePolicy(false) }, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
	}
}
