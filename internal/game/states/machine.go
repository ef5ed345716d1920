package states

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/events"
)

// Transition represents a phase change in the history
type Transition struct {
	From      EpisodePhase
	To        EpisodePhase
	Timestamp time.Time
	Reason    string
}

// DefaultMaxHistory bounds the retained transition history
const DefaultMaxHistory = 1000

// StateMachine tracks the episode phase of one environment
type StateMachine struct {
	mu             sync.RWMutex
	envID          string
	currentPhase   EpisodePhase
	history        []Transition
	maxHistorySize int
	publisher      events.Publisher
	logger         zerolog.Logger
}

// NewStateMachine creates a state machine in PhaseIdle. publisher may be nil.
func NewStateMachine(envID string, logger zerolog.Logger, publisher events.Publisher) *StateMachine {
	return &StateMachine{
		envID:          envID,
		currentPhase:   PhaseIdle,
		history:        make([]Transition, 0, 16),
		maxHistorySize: DefaultMaxHistory,
		publisher:      publisher,
		logger:         logger.With().Str("component", "state_machine").Logger(),
	}
}

// CurrentPhase returns the current episode phase
func (sm *StateMachine) CurrentPhase() EpisodePhase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentPhase
}

// TransitionTo moves to targetPhase if the current phase allows it
func (sm *StateMachine) TransitionTo(targetPhase EpisodePhase, reason string) error {
	sm.mu.Lock()
	if !sm.currentPhase.CanTransitionTo(targetPhase) {
		from := sm.currentPhase
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, targetPhase)
	}

	previousPhase := sm.currentPhase
	sm.addToHistory(Transition{
		From:      previousPhase,
		To:        targetPhase,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	sm.currentPhase = targetPhase
	sm.mu.Unlock()

	// Publish outside the lock so subscribers may query the machine.
	if sm.publisher != nil {
		sm.publisher.Publish(events.NewStateTransitionEvent(
			sm.envID,
			previousPhase.String(),
			targetPhase.String(),
			reason,
		))
	}

	sm.logger.Debug().
		Str("from_phase", previousPhase.String()).
		Str("to_phase", targetPhase.String()).
		Str("reason", reason).
		Msg("State transition completed")

	return nil
}

// addToHistory appends a transition, keeping only the newest entries
func (sm *StateMachine) addToHistory(transition Transition) {
	sm.history = append(sm.history, transition)

	if len(sm.history) > sm.maxHistorySize {
		sm.history = sm.history[len(sm.history)-sm.maxHistorySize:]
	}
}

// GetHistory returns a copy of the transition history
func (sm *StateMachine) GetHistory() []Transition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	history := make([]Transition, len(sm.history))
	copy(history, sm.history)
	return history
}

// CanTransitionTo checks if a transition to the target phase is allowed
func (sm *StateMachine) CanTransitionTo(targetPhase EpisodePhase) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentPhase.CanTransitionTo(targetPhase)
}
