package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/eval"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

func main() {
	width := flag.Int("width", 8, "Grid width")
	height := flag.Int("height", 8, "Grid height")
	prob := flag.Float64("p", 0.9, "Probability a cell is traversable")
	droplet := flag.Int("droplet", 1, "Droplet side length")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Map and policy seed")
	policyName := flag.String("policy", "observed-oracle", "Policy: oracle, observed-oracle or random")
	reveal := flag.Bool("reveal", false, "Draw hidden dynamic obstacles")
	delay := flag.Duration("delay", 0, "Pause between frames")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	factory, err := eval.PolicyByName(*policyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid policy")
	}

	cfg := game.DefaultConfig(*width, *height)
	cfg.ObstacleProb = *prob
	cfg.DropletSize = core.Footprint(*droplet)
	cfg.Rng = rand.New(rand.NewSource(*seed))
	cfg.EnvID = "demo"

	env, err := game.NewEnvironment(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create environment")
	}
	policy := factory(rand.New(rand.NewSource(*seed)))

	fmt.Printf("Episode start (optimal %d steps, budget %d):\n%s\n", env.OptimalLength(), env.MaxSteps(), env.Render(*reveal))
	for !env.Done() {
		action := policy.Act(env)
		res, err := env.Step(action)
		if err != nil {
			log.Fatal().Err(err).Msg("Step failed")
		}

		note := ""
		if res.Collision != nil {
			note = fmt.Sprintf(" collision at %s", res.Collision.Position)
		}
		fmt.Printf("Step %d: %s reward %+.1f%s\n%s\n", res.Step, action, res.Reward, note, env.Render(*reveal))
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}

	summary := env.Summary()
	fmt.Printf("Outcome: %s after %d steps, score %.2f, %d collisions\n",
		summary.Outcome, summary.Steps, summary.Score, summary.Collisions)
}
