package events

// Event type constants
const (
	TypeEpisodeStarted  = "episode.started"
	TypeEpisodeEnded    = "episode.ended"
	TypeStepTaken       = "step.taken"
	TypeObstacleStruck  = "obstacle.struck"
	TypeStateTransition = "state.transition"
)

// EpisodeStartedEvent is published whenever a map is installed by Reset
type EpisodeStartedEvent struct {
	BaseEvent
	Episode   int  `json:"episode"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Generated bool `json:"generated"`
	Attempts  int  `json:"attempts,omitempty"`
	Optimal   int  `json:"optimal_length"`
}

// NewEpisodeStartedEvent creates a new EpisodeStartedEvent. optimal is the
// BFS shortest path length from the start, -1 when unknown.
func NewEpisodeStartedEvent(envID string, episode, width, height int, generated bool, attempts, optimal int) *EpisodeStartedEvent {
	return &EpisodeStartedEvent{
		BaseEvent: newBase(TypeEpisodeStarted, envID),
		Episode:   episode,
		Width:     width,
		Height:    height,
		Generated: generated,
		Attempts:  attempts,
		Optimal:   optimal,
	}
}

// StepTakenEvent is published after every accepted step
type StepTakenEvent struct {
	BaseEvent
	Step      int     `json:"step"`
	Action    int     `json:"action"`
	FromX     int     `json:"from_x"`
	FromY     int     `json:"from_y"`
	ToX       int     `json:"to_x"`
	ToY       int     `json:"to_y"`
	Reward    float64 `json:"reward"`
	Collision bool    `json:"collision"`
	Done      bool    `json:"done"`
}

// NewStepTakenEvent creates a new StepTakenEvent
func NewStepTakenEvent(envID string, step, action, fromX, fromY, toX, toY int, reward float64, collision, done bool) *StepTakenEvent {
	return &StepTakenEvent{
		BaseEvent: newBase(TypeStepTaken, envID),
		Step:      step,
		Action:    action,
		FromX:     fromX,
		FromY:     fromY,
		ToX:       toX,
		ToY:       toY,
		Reward:    reward,
		Collision: collision,
		Done:      done,
	}
}

// ObstacleStruckEvent is published when a move collides with a dynamic
// obstacle and the cell turns static.
type ObstacleStruckEvent struct {
	BaseEvent
	Step int `json:"step"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// NewObstacleStruckEvent creates a new ObstacleStruckEvent
func NewObstacleStruckEvent(envID string, step, x, y int) *ObstacleStruckEvent {
	return &ObstacleStruckEvent{
		BaseEvent: newBase(TypeObstacleStruck, envID),
		Step:      step,
		X:         x,
		Y:         y,
	}
}

// EpisodeEndedEvent is published when an episode terminates
type EpisodeEndedEvent struct {
	BaseEvent
	Episode int     `json:"episode"`
	Outcome string  `json:"outcome"`
	Steps   int     `json:"steps"`
	Score   float64 `json:"score"`
}

// NewEpisodeEndedEvent creates a new EpisodeEndedEvent
func NewEpisodeEndedEvent(envID string, episode int, outcome string, steps int, score float64) *EpisodeEndedEvent {
	return &EpisodeEndedEvent{
		BaseEvent: newBase(TypeEpisodeEnded, envID),
		Episode:   episode,
		Outcome:   outcome,
		Steps:     steps,
		Score:     score,
	}
}

// StateTransitionEvent is published when the episode phase changes
type StateTransitionEvent struct {
	BaseEvent
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase"`
	Reason    string `json:"reason"`
}

// NewStateTransitionEvent creates a new StateTransitionEvent
func NewStateTransitionEvent(envID, fromPhase, toPhase, reason string) *StateTransitionEvent {
	return &StateTransitionEvent{
		BaseEvent: newBase(TypeStateTransition, envID),
		FromPhase: fromPhase,
		ToPhase:   toPhase,
		Reason:    reason,
	}
}
