package game

import (
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/rules"
)

// Transition is one (state, action, reward, next state) sample
type Transition struct {
	EnvID      string
	Episode    int
	Step       int
	State      Observation
	Action     core.Direction
	ActionMask [core.NumDirections]bool
	Reward     float64
	NextState  Observation
	Done       bool
	Outcome    rules.Outcome
	Collision  bool
}

// EpisodeSummary describes a finished episode
type EpisodeSummary struct {
	EnvID      string
	Episode    int
	Outcome    rules.Outcome
	Steps      int
	Score      float64
	Collisions int
	// OptimalLength is the BFS shortest path length at reset, -1 if the
	// map was unsolvable.
	OptimalLength int
}

// ExperienceCollector is an interface for collecting experiences during episodes
type ExperienceCollector interface {
	// OnStep is called after each accepted step
	OnStep(t Transition)

	// OnEpisodeEnd is called when the episode terminates
	OnEpisodeEnd(summary EpisodeSummary)
}
