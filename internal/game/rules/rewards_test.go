package rules

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRewardConfig(t *testing.T) {
	cfg := DefaultRewardConfig()
	assert.Equal(t, 1.0, cfg.Goal)
	assert.Equal(t, -0.8, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.Progress)
	assert.Equal(t, -0.8, cfg.NoProgress)
	assert.NoError(t, cfg.Validate())
}

func TestRewardConfig_Validate(t *testing.T) {
	cfg := DefaultRewardConfig()
	cfg.Goal = 0.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultRewardConfig()
	cfg.NoProgress = 0.6
	assert.Error(t, cfg.Validate())
}

func TestMaxSteps(t *testing.T) {
	assert.Equal(t, 32, MaxSteps(8, 8))
	assert.Equal(t, 6, MaxSteps(2, 1))
}

func TestRewardPolicy_Evaluate(t *testing.T) {
	policy := NewRewardPolicy(DefaultRewardConfig(), zerolog.Nop())

	tests := []struct {
		name            string
		dBefore, dAfter float64
		steps           int
		expected        Verdict
	}{
		{"goal", 1, 0, 5, Verdict{Reward: 1.0, Done: true, Outcome: OutcomeGoal}},
		{"goal on last step beats timeout", 1, 0, 32, Verdict{Reward: 1.0, Done: true, Outcome: OutcomeGoal}},
		{"timeout", 3, 2, 32, Verdict{Reward: -0.8, Done: true, Outcome: OutcomeTimeout}},
		{"timeout past budget", 3, 2, 40, Verdict{Reward: -0.8, Done: true, Outcome: OutcomeTimeout}},
		{"progress", 3, 2, 4, Verdict{Reward: 0.5}},
		{"standing still", 3, 3, 4, Verdict{Reward: -0.8}},
		{"moving away", 3, 4, 4, Verdict{Reward: -0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.Evaluate(tt.dBefore, tt.dAfter, tt.steps, 32))
		})
	}
}

func TestRewardPolicy_CustomConfig(t *testing.T) {
	cfg := RewardConfig{Goal: 10, Timeout: -5, Progress: 1, NoProgress: -1}
	policy := NewRewardPolicy(cfg, zerolog.Nop())

	assert.Equal(t, cfg, policy.Config())
	assert.Equal(t, 10.0, policy.Evaluate(1, 0, 1, 10).Reward)
	assert.Equal(t, -5.0, policy.Evaluate(2, 1, 10, 10).Reward)
	assert.Equal(t, 1.0, policy.Evaluate(2, 1, 1, 10).Reward)
	assert.Equal(t, -1.0, policy.Evaluate(1, 2, 1, 10).Reward)
}
