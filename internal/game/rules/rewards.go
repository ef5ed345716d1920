package rules

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Outcome describes how a step ended the episode, if it did
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeGoal    Outcome = "goal"
	OutcomeTimeout Outcome = "timeout"
)

// RewardConfig holds configurable reward values
type RewardConfig struct {
	Goal       float64 `mapstructure:"goal"`
	Timeout    float64 `mapstructure:"timeout"`
	Progress   float64 `mapstructure:"progress"`
	NoProgress float64 `mapstructure:"no_progress"`
}

// DefaultRewardConfig returns the default reward configuration
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		Goal:       1.0,
		Timeout:    -0.8,
		Progress:   0.5,
		NoProgress: -0.8,
	}
}

// Validate rejects reward tables that would not rank reaching the goal
// above making progress.
func (c RewardConfig) Validate() error {
	if c.Goal <= c.Progress {
		return fmt.Errorf("goal reward %v must exceed progress reward %v", c.Goal, c.Progress)
	}
	if c.Progress <= c.NoProgress {
		return fmt.Errorf("progress reward %v must exceed no-progress reward %v", c.Progress, c.NoProgress)
	}
	return nil
}

// MaxSteps is the step budget for a w×h grid
func MaxSteps(w, h int) int {
	return 2 * (w + h)
}

// Verdict is the reward and termination decision for one step
type Verdict struct {
	Reward  float64
	Done    bool
	Outcome Outcome
}

// RewardPolicy decides rewards and episode termination
type RewardPolicy struct {
	config RewardConfig
	logger zerolog.Logger
}

// NewRewardPolicy creates a new reward policy
func NewRewardPolicy(config RewardConfig, logger zerolog.Logger) *RewardPolicy {
	return &RewardPolicy{
		config: config,
		logger: logger.With().Str("component", "RewardPolicy").Logger(),
	}
}

// Config returns the reward table in use
func (rp *RewardPolicy) Config() RewardConfig { return rp.config }

// Evaluate applies, in order: goal reached, step budget exhausted,
// progress toward the goal, no progress.
func (rp *RewardPolicy) Evaluate(dBefore, dAfter float64, steps, maxSteps int) Verdict {
	var v Verdict
	switch {
	case dAfter == 0:
		v = Verdict{Reward: rp.config.Goal, Done: true, Outcome: OutcomeGoal}
	case steps >= maxSteps:
		v = Verdict{Reward: rp.config.Timeout, Done: true, Outcome: OutcomeTimeout}
	case dAfter < dBefore:
		v = Verdict{Reward: rp.config.Progress}
	default:
		v = Verdict{Reward: rp.config.NoProgress}
	}

	if v.Done {
		rp.logger.Debug().
			Str("outcome", string(v.Outcome)).
			Int("steps", steps).
			Int("max_steps", maxSteps).
			Msg("Episode termination determined")
	}
	return v
}
