package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/events"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/mapgen"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/pathfind"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/processor"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/rules"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/states"
)

// Config holds everything needed to build an Environment
type Config struct {
	Width                 int
	Height                int
	ObstacleProb          float64
	DropletSize           core.Footprint
	MaxGenerationAttempts int
	Rewards               rules.RewardConfig

	// EnvID names the environment in logs and events; a UUID when empty
	EnvID string
	// Rng drives map generation; seeded from the clock when nil
	Rng       *rand.Rand
	Logger    zerolog.Logger
	EventBus  *events.EventBus
	Collector ExperienceCollector
}

// ErrInvalidConfig wraps every configuration validation failure
var ErrInvalidConfig = errors.New("invalid environment config")

// DefaultConfig returns the training configuration for a w×h grid
func DefaultConfig(w, h int) Config {
	return Config{
		Width:                 w,
		Height:                h,
		ObstacleProb:          0.9,
		DropletSize:           1,
		MaxGenerationAttempts: mapgen.DefaultMaxAttempts,
		Rewards:               rules.DefaultRewardConfig(),
		Logger:                log.Logger,
	}
}

func (c Config) mapConfig() mapgen.MapConfig {
	return mapgen.MapConfig{
		Width:        c.Width,
		Height:       c.Height,
		ObstacleProb: c.ObstacleProb,
		DropletSize:  c.DropletSize,
		MaxAttempts:  c.MaxGenerationAttempts,
	}
}

// Validate checks the grid, generation and reward settings
func (c Config) Validate() error {
	if err := c.mapConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Rewards.Validate(); err != nil {
		return fmt.Errorf("%w: rewards: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Collision is the dynamic-obstacle record for a single step
type Collision struct {
	// Position is where the droplet tried to move
	Position core.Coordinate
	// Struck lists the cells that turned into static obstacles
	Struck []core.Coordinate
}

// StepResult is everything Step reports back to the agent
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Outcome     rules.Outcome
	// Collision is non-nil when a dynamic obstacle was struck this step
	Collision *Collision
	Step      int
	Position  core.Coordinate
}

// Environment is one droplet routing episode at a time: a grid, the
// droplet's position and the step budget. It is not safe for concurrent
// use.
type Environment struct {
	id     string
	config Config

	generator *mapgen.Generator
	moves     *processor.MoveProcessor
	rewards   *rules.RewardPolicy
	machine   *states.StateMachine
	eventBus  *events.EventBus
	collector ExperienceCollector
	logger    zerolog.Logger

	grid       *core.Grid
	pos        core.Coordinate
	goal       core.Coordinate
	steps      int
	maxSteps   int
	score      float64
	collisions int
	episode    int
	optimal    int
	outcome    rules.Outcome
}

// NewEnvironment builds an environment and resets it onto a generated map
func NewEnvironment(cfg Config) (*Environment, error) {
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.EnvID == "" {
		cfg.EnvID = uuid.New().String()
	}
	if cfg.EventBus == nil {
		cfg.EventBus = events.NewEventBus(cfg.Logger.With().Str("env_id", cfg.EnvID).Logger())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	generator, err := mapgen.NewGenerator(cfg.mapConfig(), cfg.Rng)
	if err != nil {
		return nil, err
	}

	base := cfg.Logger.With().Str("env_id", cfg.EnvID).Logger()

	e := &Environment{
		id:        cfg.EnvID,
		config:    cfg,
		generator: generator,
		moves:     processor.NewMoveProcessor(base),
		rewards:   rules.NewRewardPolicy(cfg.Rewards, base),
		machine:   states.NewStateMachine(cfg.EnvID, base, cfg.EventBus),
		eventBus:  cfg.EventBus,
		collector: cfg.Collector,
		logger:    base.With().Str("component", "Environment").Logger(),
		maxSteps:  rules.MaxSteps(cfg.Width, cfg.Height),
		optimal:   -1,
	}

	if _, err := e.Reset(nil); err != nil {
		return nil, fmt.Errorf("initial reset: %w", err)
	}

	e.logger.Info().
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Float64("obstacle_prob", cfg.ObstacleProb).
		Int("droplet_size", int(cfg.DropletSize)).
		Int("max_steps", e.maxSteps).
		Msg("Environment created")

	return e, nil
}

// Reset starts a new episode. With a nil map a fresh solvable map is
// generated; otherwise a copy of fixed is installed as-is, without a
// solvability check.
func (e *Environment) Reset(fixed *core.Grid) (Observation, error) {
	var (
		grid     *core.Grid
		attempts int
		err      error
	)
	if fixed == nil {
		grid, attempts, err = e.generator.GenerateMapWithAttempts()
	} else {
		grid, err = e.prepareFixedMap(fixed)
	}
	if err != nil {
		return Observation{}, err
	}

	goal, ok := grid.Goal()
	if !ok {
		return Observation{}, fmt.Errorf("reset: %w", core.ErrInvalidMap)
	}

	e.grid = grid
	e.goal = goal
	e.pos = core.Coordinate{}
	e.steps = 0
	e.score = 0
	e.collisions = 0
	e.episode++
	e.optimal = -1
	e.outcome = rules.OutcomeNone
	if length, ok := pathfind.ShortestPathLength(grid, e.pos, e.config.DropletSize); ok {
		e.optimal = length
	}

	if err := e.machine.TransitionTo(states.PhaseReady, "reset"); err != nil {
		return Observation{}, err
	}

	e.eventBus.Publish(events.NewEpisodeStartedEvent(
		e.id, e.episode, grid.W, grid.H, fixed == nil, attempts, e.optimal,
	))

	e.logger.Debug().
		Int("episode", e.episode).
		Bool("generated", fixed == nil).
		Int("attempts", attempts).
		Int("optimal_length", e.optimal).
		Msg("Episode reset")

	return e.Observe(), nil
}

// prepareFixedMap copies an externally supplied map and places the droplet
// at the origin.
func (e *Environment) prepareFixedMap(fixed *core.Grid) (*core.Grid, error) {
	if fixed.W != e.config.Width || fixed.H != e.config.Height {
		return nil, fmt.Errorf("map is %dx%d, environment is %dx%d: %w",
			fixed.W, fixed.H, e.config.Width, e.config.Height, core.ErrMapMismatch)
	}
	if err := fixed.Validate(); err != nil {
		return nil, err
	}

	grid := fixed.Clone()
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			if c, _ := grid.Get(x, y); c.IsAgent() {
				_ = grid.Set(x, y, core.CellEmpty)
			}
		}
	}

	for _, c := range e.config.DropletSize.Cells(core.Coordinate{}) {
		cell, _ := grid.Get(c.X, c.Y)
		if cell.IsObstacle() {
			return nil, fmt.Errorf("start cell %s is an obstacle: %w", c, core.ErrInvalidMap)
		}
		if cell.IsGoal() {
			return nil, fmt.Errorf("start cell %s is the goal: %w", c, core.ErrInvalidMap)
		}
		_ = grid.Set(c.X, c.Y, core.CellAgent)
	}
	return grid, nil
}

// StepAction is Step for a raw action id in 0..3
func (e *Environment) StepAction(action int) (StepResult, error) {
	dir, err := core.ParseDirection(action)
	if err != nil {
		return StepResult{}, err
	}
	return e.Step(dir)
}

// Step moves the droplet one cell and scores the move
func (e *Environment) Step(action core.Direction) (StepResult, error) {
	if !action.IsValid() {
		return StepResult{}, fmt.Errorf("step: action %d: %w", int(action), core.ErrInvalidAction)
	}
	if !e.machine.CurrentPhase().CanReceiveActions() {
		return StepResult{}, fmt.Errorf("step %d of episode %d: %w", e.steps, e.episode, core.ErrEpisodeDone)
	}

	var prev Observation
	var mask [core.NumDirections]bool
	if e.collector != nil {
		prev = e.Observe()
		mask = e.ActionMask()
	}

	e.steps++
	size := e.config.DropletSize
	dBefore := size.GoalDistance(e.pos, e.goal)

	move, err := e.moves.Apply(e.grid, e.pos, size, action)
	if err != nil {
		return StepResult{}, err
	}
	from := e.pos
	e.pos = move.To

	var collision *Collision
	measured := e.pos
	if move.Collided() {
		collision = &Collision{Position: move.Target, Struck: move.Struck}
		measured = move.Target
		e.collisions++
		e.eventBus.Publish(events.NewObstacleStruckEvent(e.id, e.steps, move.Target.X, move.Target.Y))
	}
	dAfter := size.GoalDistance(measured, e.goal)

	verdict := e.rewards.Evaluate(dBefore, dAfter, e.steps, e.maxSteps)
	e.score += verdict.Reward
	e.outcome = verdict.Outcome

	if verdict.Done {
		if err := e.machine.TransitionTo(states.PhaseDone, string(verdict.Outcome)); err != nil {
			return StepResult{}, err
		}
	}

	obs := e.Observe()
	e.eventBus.Publish(events.NewStepTakenEvent(
		e.id, e.steps, int(action), from.X, from.Y, e.pos.X, e.pos.Y,
		verdict.Reward, collision != nil, verdict.Done,
	))

	if e.collector != nil {
		e.collector.OnStep(Transition{
			EnvID:      e.id,
			Episode:    e.episode,
			Step:       e.steps,
			State:      prev,
			Action:     action,
			ActionMask: mask,
			Reward:     verdict.Reward,
			NextState:  obs.Clone(),
			Done:       verdict.Done,
			Outcome:    verdict.Outcome,
			Collision:  collision != nil,
		})
	}

	if verdict.Done {
		e.finishEpisode(verdict.Outcome)
	}

	return StepResult{
		Observation: obs,
		Reward:      verdict.Reward,
		Done:        verdict.Done,
		Outcome:     verdict.Outcome,
		Collision:   collision,
		Step:        e.steps,
		Position:    e.pos,
	}, nil
}

func (e *Environment) finishEpisode(outcome rules.Outcome) {
	e.eventBus.Publish(events.NewEpisodeEndedEvent(e.id, e.episode, string(outcome), e.steps, e.score))

	if e.collector != nil {
		e.collector.OnEpisodeEnd(e.Summary())
	}

	e.logger.Debug().
		Int("episode", e.episode).
		Str("outcome", string(outcome)).
		Int("steps", e.steps).
		Float64("score", e.score).
		Int("collisions", e.collisions).
		Msg("Episode finished")
}

// Observe encodes the current state. Only what the agent can see is marked.
func (e *Environment) Observe() Observation {
	obs := NewObservation(e.grid.W, e.grid.H)
	for _, c := range e.config.DropletSize.Cells(e.pos) {
		obs.mark(c.X, c.Y, ChannelAgent)
	}
	obs.mark(e.goal.X, e.goal.Y, ChannelGoal)
	for y := 0; y < e.grid.H; y++ {
		for x := 0; x < e.grid.W; x++ {
			if e.grid.IsStaticObstacle(x, y) {
				obs.mark(x, y, ChannelStatic)
			}
		}
	}
	return obs
}

// ActionMask reports which moves are not visibly blocked
func (e *Environment) ActionMask() [core.NumDirections]bool {
	return rules.LegalActionMask(e.grid, e.pos, e.config.DropletSize)
}

// Summary describes the current episode so far
func (e *Environment) Summary() EpisodeSummary {
	return EpisodeSummary{
		EnvID:         e.id,
		Episode:       e.episode,
		Outcome:       e.outcome,
		Steps:         e.steps,
		Score:         e.score,
		Collisions:    e.collisions,
		OptimalLength: e.optimal,
	}
}

// ObservationShape returns (width, height, channels)
func (e *Environment) ObservationShape() [3]int {
	return [3]int{e.config.Width, e.config.Height, ObservationChannels}
}

// ActionCount is the size of the discrete action space
func (e *Environment) ActionCount() int { return core.NumDirections }

func (e *Environment) ID() string { return e.id }
func (e *Environment) Config() Config { return e.config }

// Grid returns a copy of the current map
func (e *Environment) Grid() *core.Grid { return e.grid.Clone() }

func (e *Environment) Position() core.Coordinate { return e.pos }
func (e *Environment) Goal() core.Coordinate { return e.goal }
func (e *Environment) Steps() int { return e.steps }
func (e *Environment) MaxSteps() int { return e.maxSteps }
func (e *Environment) Score() float64 { return e.score }
func (e *Environment) Episode() int { return e.episode }
func (e *Environment) Collisions() int { return e.collisions }
func (e *Environment) Outcome() rules.Outcome { return e.outcome }

// OptimalLength is the BFS shortest path length computed at reset, -1
// when the installed map is unsolvable.
func (e *Environment) OptimalLength() int { return e.optimal }

func (e *Environment) Phase() states.EpisodePhase { return e.machine.CurrentPhase() }
func (e *Environment) Done() bool { return e.machine.CurrentPhase().IsTerminal() }
func (e *Environment) EventBus() *events.EventBus { return e.eventBus }
func (e *Environment) History() []states.Transition { return e.machine.GetHistory() }
