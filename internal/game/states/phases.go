package states

import "fmt"

// EpisodePhase represents where an environment is in its episode lifecycle
type EpisodePhase int

const (
	// PhaseIdle - Environment created, no map installed yet
	PhaseIdle EpisodePhase = iota

	// PhaseReady - Map installed, accepting steps
	PhaseReady

	// PhaseDone - Goal reached or step budget exhausted
	PhaseDone
)

// String returns the string representation of an EpisodePhase
func (p EpisodePhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseReady:
		return "Ready"
	case PhaseDone:
		return "Done"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if no further steps are accepted in this phase
func (p EpisodePhase) IsTerminal() bool {
	return p == PhaseDone
}

// CanReceiveActions returns true if the environment can step in this phase
func (p EpisodePhase) CanReceiveActions() bool {
	return p == PhaseReady
}

// AllowedTransitions returns the valid phases this phase can transition to.
// Ready -> Ready is a reset in the middle of an episode.
func (p EpisodePhase) AllowedTransitions() []EpisodePhase {
	switch p {
	case PhaseIdle:
		return []EpisodePhase{PhaseReady}
	case PhaseReady:
		return []EpisodePhase{PhaseReady, PhaseDone}
	case PhaseDone:
		return []EpisodePhase{PhaseReady}
	default:
		return []EpisodePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p EpisodePhase) CanTransitionTo(target EpisodePhase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to an EpisodePhase
func ParsePhase(s string) (EpisodePhase, error) {
	switch s {
	case "Idle":
		return PhaseIdle, nil
	case "Ready":
		return PhaseReady, nil
	case "Done":
		return PhaseDone, nil
	default:
		return PhaseIdle, fmt.Errorf("unknown episode phase %q", s)
	}
}
