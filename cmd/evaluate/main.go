package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/config"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/eval"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	policyName := flag.String("policy", "", "Policy to evaluate: oracle, observed-oracle or random (empty to use config default)")
	episodes := flag.Int("episodes", -1, "Number of episodes (-1 to use config default)")
	workers := flag.Int("workers", -1, "Parallel workers (-1 to use config default)")
	seed := flag.Int64("seed", -1, "Seed for map generation and policies (-1 to use config default)")
	mapSetPath := flag.String("maps", "", "Evaluate on a saved map set instead of generated maps")
	savePath := flag.String("save-maps", "", "Write the maps used for this run to a YAML file")
	logLevel := flag.String("log-level", "", "Log level (empty to use config default)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()

	if *policyName == "" {
		*policyName = cfg.Evaluation.Policy
	}
	if *episodes == -1 {
		*episodes = cfg.Evaluation.Episodes
	}
	if *workers == -1 {
		*workers = cfg.Evaluation.Workers
	}
	if *seed == -1 {
		*seed = cfg.Evaluation.Seed
	}
	if *mapSetPath == "" {
		*mapSetPath = cfg.Evaluation.MapSet
	}

	level := cfg.DevelopmentLogLevel()
	if *logLevel != "" {
		parsed, err := zerolog.ParseLevel(*logLevel)
		if err != nil {
			log.Fatal().Err(err).Str("log_level", *logLevel).Msg("Invalid log level")
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	factory, err := eval.PolicyByName(*policyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid policy")
	}

	evalConfig := eval.Config{
		Env:      cfg.EnvironmentConfig(),
		Episodes: *episodes,
		Workers:  *workers,
		Seed:     *seed,
	}
	if *mapSetPath != "" {
		maps, err := eval.LoadMapSet(*mapSetPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *mapSetPath).Msg("Failed to load map set")
		}
		evalConfig.MapSet = maps
	}

	evaluator, err := eval.NewEvaluator(evalConfig, factory, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create evaluator")
	}

	if *savePath != "" {
		if err := evaluator.Maps().Save(*savePath); err != nil {
			log.Fatal().Err(err).Str("path", *savePath).Msg("Failed to save map set")
		}
		log.Info().Str("path", *savePath).Int("maps", evaluator.Maps().Len()).Msg("Saved map set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, err := evaluator.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}

	printReport(report, time.Since(start))
}

func printReport(r *eval.Report, elapsed time.Duration) {
	fmt.Printf("policy:        %s\n", r.Policy)
	fmt.Printf("episodes:      %d (%s)\n", r.Episodes, elapsed.Round(time.Millisecond))
	fmt.Printf("success rate:  %.3f (%d goals, %d timeouts)\n", r.SuccessRate(), r.Goals, r.Timeouts)
	fmt.Printf("optimal runs:  %d\n", r.OptimalRuns)
	fmt.Printf("mean score:    %.3f\n", r.MeanScore)
	fmt.Printf("mean steps:    %.2f\n", r.MeanSteps)
	fmt.Printf("mean excess:   %.2f\n", r.MeanExcess)
	fmt.Printf("collisions:    %d\n", r.Collisions)

	fmt.Println("steps histogram:")
	peak := 0
	for _, n := range r.StepHistogram {
		peak = max(peak, n)
	}
	for _, steps := range r.HistogramKeys() {
		n := r.StepHistogram[steps]
		bar := 0
		if peak > 0 {
			bar = n * 40 / peak
		}
		fmt.Printf("  %4d | %-40s %d\n", steps, strings.Repeat("#", max(bar, 1)), n)
	}
}
