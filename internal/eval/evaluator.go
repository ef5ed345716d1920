// Package eval runs policies over fixed maps and compares their step counts
// with the breadth-first shortest path.
package eval

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/mapgen"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/rules"
)

// Config controls an evaluation run
type Config struct {
	// Env is the template for every worker's environment. Rng, EnvID and
	// EventBus are replaced per worker.
	Env      game.Config
	Episodes int
	Workers  int
	Seed     int64
	// MapSet, when set, supplies the maps; episodes cycle through it.
	// Otherwise Episodes maps are generated from Seed.
	MapSet *MapSet
}

// EpisodeResult is the outcome of one evaluated episode
type EpisodeResult struct {
	Index      int
	MapName    string
	Outcome    rules.Outcome
	Steps      int
	Collisions int
	Score      float64
	// Optimal is the BFS shortest path length, -1 for unsolvable maps
	Optimal int
	// Excess is the number of steps beyond Optimal, not counting steps
	// spent striking dynamic obstacles. Only meaningful on goal episodes.
	Excess int
}

// Report aggregates a run
type Report struct {
	Policy        string
	Episodes      int
	Goals         int
	Timeouts      int
	OptimalRuns   int
	MeanScore     float64
	MeanSteps     float64
	MeanExcess    float64
	Collisions    int
	StepHistogram map[int]int
	Results       []EpisodeResult
}

// SuccessRate is the fraction of episodes that reached the goal
func (r *Report) SuccessRate() float64 {
	if r.Episodes == 0 {
		return 0
	}
	return float64(r.Goals) / float64(r.Episodes)
}

// HistogramKeys returns the step counts present in the histogram, ascending
func (r *Report) HistogramKeys() []int {
	keys := make([]int, 0, len(r.StepHistogram))
	for k := range r.StepHistogram {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Evaluator runs a policy across many episodes in parallel
type Evaluator struct {
	config    Config
	maps      *MapSet
	newPolicy PolicyFactory
	logger    zerolog.Logger
}

// NewEvaluator prepares the maps and validates the configuration
func NewEvaluator(config Config, newPolicy PolicyFactory, logger zerolog.Logger) (*Evaluator, error) {
	if newPolicy == nil {
		return nil, errors.New("evaluator requires a policy factory")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	maps := config.MapSet
	if maps != nil {
		config.Env.Width, config.Env.Height = maps.Dimensions()
		if config.Episodes <= 0 {
			config.Episodes = maps.Len()
		}
	} else {
		if config.Episodes <= 0 {
			return nil, fmt.Errorf("episodes %d must be positive", config.Episodes)
		}
		generator, err := mapgen.NewGenerator(mapgen.MapConfig{
			Width:        config.Env.Width,
			Height:       config.Env.Height,
			ObstacleProb: config.Env.ObstacleProb,
			DropletSize:  config.Env.DropletSize,
			MaxAttempts:  config.Env.MaxGenerationAttempts,
		}, rand.New(rand.NewSource(config.Seed)))
		if err != nil {
			return nil, err
		}
		if maps, err = GenerateMapSet(generator, config.Episodes); err != nil {
			return nil, err
		}
	}
	if config.Workers > config.Episodes {
		config.Workers = config.Episodes
	}

	return &Evaluator{
		config:    config,
		maps:      maps,
		newPolicy: newPolicy,
		logger:    logger.With().Str("component", "evaluator").Logger(),
	}, nil
}

// Maps returns the maps the evaluator draws from
func (e *Evaluator) Maps() *MapSet { return e.maps }

// Run evaluates every episode and aggregates the results. Results are
// ordered by episode index regardless of which worker ran them.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	results := make([]EpisodeResult, e.config.Episodes)
	jobs := make(chan int)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)
		for i := 0; i < e.config.Episodes; i++ {
			select {
			case jobs <- i:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	var policyName string
	var nameOnce sync.Once
	for w := 0; w < e.config.Workers; w++ {
		worker := w
		group.Go(func() error {
			env, err := e.newWorkerEnv(worker)
			if err != nil {
				return fmt.Errorf("worker %d: %w", worker, err)
			}
			for i := range jobs {
				policy := e.newPolicy(rand.New(rand.NewSource(e.config.Seed + int64(i))))
				nameOnce.Do(func() { policyName = policy.Name() })

				result, err := e.runEpisode(groupCtx, env, policy, i)
				if err != nil {
					return fmt.Errorf("episode %d: %w", i, err)
				}
				results[i] = result
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := aggregate(policyName, results)
	e.logger.Info().
		Str("policy", report.Policy).
		Int("episodes", report.Episodes).
		Int("goals", report.Goals).
		Int("timeouts", report.Timeouts).
		Int("optimal_runs", report.OptimalRuns).
		Float64("mean_steps", report.MeanSteps).
		Float64("mean_excess", report.MeanExcess).
		Msg("Evaluation finished")
	return report, nil
}

func (e *Evaluator) newWorkerEnv(worker int) (*game.Environment, error) {
	cfg := e.config.Env
	cfg.Rng = rand.New(rand.NewSource(e.config.Seed + int64(worker)))
	cfg.EnvID = fmt.Sprintf("eval-worker-%d", worker)
	cfg.EventBus = nil
	return game.NewEnvironment(cfg)
}

func (e *Evaluator) runEpisode(ctx context.Context, env *game.Environment, policy Policy, index int) (EpisodeResult, error) {
	mapIndex := index % e.maps.Len()
	if _, err := env.Reset(e.maps.Grid(mapIndex)); err != nil {
		return EpisodeResult{}, err
	}

	for !env.Done() {
		if err := ctx.Err(); err != nil {
			return EpisodeResult{}, err
		}
		if _, err := env.Step(policy.Act(env)); err != nil {
			return EpisodeResult{}, err
		}
	}

	summary := env.Summary()
	result := EpisodeResult{
		Index:      index,
		MapName:    e.maps.Maps[mapIndex].Name,
		Outcome:    summary.Outcome,
		Steps:      summary.Steps,
		Collisions: summary.Collisions,
		Score:      summary.Score,
		Optimal:    summary.OptimalLength,
	}
	if result.Optimal >= 0 {
		result.Excess = result.Steps - result.Collisions - result.Optimal
	}

	e.logger.Debug().
		Int("episode", index).
		Str("map", result.MapName).
		Str("outcome", string(result.Outcome)).
		Int("steps", result.Steps).
		Int("optimal", result.Optimal).
		Int("collisions", result.Collisions).
		Msg("Evaluated episode")
	return result, nil
}

func aggregate(policy string, results []EpisodeResult) *Report {
	report := &Report{
		Policy:        policy,
		Episodes:      len(results),
		StepHistogram: make(map[int]int),
		Results:       results,
	}
	if len(results) == 0 {
		return report
	}

	var score, steps, excess float64
	for _, r := range results {
		report.StepHistogram[r.Steps]++
		report.Collisions += r.Collisions
		score += r.Score
		steps += float64(r.Steps)

		switch r.Outcome {
		case rules.OutcomeGoal:
			report.Goals++
			excess += float64(r.Excess)
			if r.Excess == 0 {
				report.OptimalRuns++
			}
		case rules.OutcomeTimeout:
			report.Timeouts++
		}
	}

	n := float64(len(results))
	report.MeanScore = score / n
	report.MeanSteps = steps / n
	if report.Goals > 0 {
		report.MeanExcess = excess / float64(report.Goals)
	}
	return report
}
