// Package envserver exposes droplet routing environments to an external
// trainer over gRPC.
package envserver

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

// ServerConfig configures the environment service
type ServerConfig struct {
	// Env is the template for new environments; request fields override
	// its dimensions, obstacle probability and droplet size.
	Env     game.Config
	Manager ManagerConfig

	// Collector receives every transition. When it is also an
	// ExperienceSource the experience RPCs serve from it.
	Collector game.ExperienceCollector
}

// Server implements EnvironmentServiceServer
type Server struct {
	template    game.Config
	envManager  *EnvManager
	experiences ExperienceSource
}

var _ EnvironmentServiceServer = (*Server)(nil)

// NewServer creates the service and starts idle cleanup
func NewServer(config ServerConfig) *Server {
	template := config.Env
	template.Collector = nil
	template.EventBus = nil
	template.EnvID = ""

	manager := NewEnvManager(config.Manager, config.Collector)
	manager.Start()

	experiences, _ := config.Collector.(ExperienceSource)

	return &Server{
		template:    template,
		envManager:  manager,
		experiences: experiences,
	}
}

// Manager exposes the environment registry
func (s *Server) Manager() *EnvManager { return s.envManager }

// Stop halts background work
func (s *Server) Stop() {
	s.envManager.Stop()
}

// CreateEnv creates a new environment and runs its first reset
func (s *Server) CreateEnv(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.envConfig(req)
	if err != nil {
		return nil, toStatus(err, "create env")
	}

	inst, err := s.envManager.CreateEnv(cfg)
	if err != nil {
		return nil, toStatus(err, "create env")
	}

	inst.mu.Lock()
	shape := inst.env.ObservationShape()
	actions := inst.env.ActionCount()
	maxSteps := inst.env.MaxSteps()
	inst.mu.Unlock()

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"env_id":            structpb.NewStringValue(inst.id),
		"observation_shape": shapeValue(shape),
		"action_count":      structpb.NewNumberValue(float64(actions)),
		"max_steps":         structpb.NewNumberValue(float64(maxSteps)),
	}}, nil
}

// envConfig applies request overrides to the template
func (s *Server) envConfig(req *structpb.Struct) (game.Config, error) {
	cfg := s.template
	cfg.Rng = nil

	if w, ok, err := getInt(req, "width"); err != nil {
		return cfg, err
	} else if ok {
		cfg.Width = w
	}
	if h, ok, err := getInt(req, "height"); err != nil {
		return cfg, err
	} else if ok {
		cfg.Height = h
	}
	if p, ok, err := getNumber(req, "obstacle_prob"); err != nil {
		return cfg, err
	} else if ok {
		cfg.ObstacleProb = p
	}
	if size, ok, err := getInt(req, "droplet_size"); err != nil {
		return cfg, err
	} else if ok {
		cfg.DropletSize = core.Footprint(size)
	}
	if seed, ok, err := getInt(req, "seed"); err != nil {
		return cfg, err
	} else if ok {
		cfg.Rng = rand.New(rand.NewSource(int64(seed)))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Reset starts a new episode, on the supplied map if one is given
func (s *Server) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	inst, err := s.instance(req)
	if err != nil {
		return nil, toStatus(err, "reset")
	}

	rows, err := getRows(req, "map")
	if err != nil {
		return nil, toStatus(err, "reset env %s", inst.id)
	}
	var fixed *core.Grid
	if rows != nil {
		if fixed, err = core.ParseGrid(rows); err != nil {
			return nil, toStatus(err, "reset env %s", inst.id)
		}
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	obs, err := inst.env.Reset(fixed)
	if err != nil {
		return nil, toStatus(err, "reset env %s", inst.id)
	}
	inst.idempotency.Reset()
	inst.touch()

	log.Debug().
		Str("env_id", inst.id).
		Int("episode", inst.env.Episode()).
		Bool("fixed_map", fixed != nil).
		Msg("Environment reset")

	return resetResponse(obs, inst.env.Steps()), nil
}

// Step applies one action. A repeated request_id replays the cached response.
func (s *Server) Step(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	inst, err := s.instance(req)
	if err != nil {
		return nil, toStatus(err, "step")
	}

	action, err := requireInt(req, "action")
	if err != nil {
		return nil, toStatus(err, "step env %s", inst.id)
	}
	requestID, err := getOptionalString(req, "request_id")
	if err != nil {
		return nil, toStatus(err, "step env %s", inst.id)
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if cached := inst.idempotency.Check(requestID); cached != nil {
		log.Debug().
			Str("env_id", inst.id).
			Str("request_id", requestID).
			Msg("Returning cached step response")
		return cached, nil
	}

	result, err := inst.env.StepAction(action)
	if err != nil {
		return nil, toStatus(err, "step env %s", inst.id)
	}
	inst.touch()

	resp := stepResponse(result)
	inst.idempotency.Store(requestID, resp)
	return resp, nil
}

// CloseEnv removes an environment
func (s *Server) CloseEnv(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := getString(req, "env_id")
	if err != nil {
		return nil, toStatus(err, "close env")
	}
	if err := s.envManager.CloseEnv(id); err != nil {
		return nil, toStatus(err, "close env")
	}
	return &structpb.Struct{}, nil
}

func (s *Server) instance(req *structpb.Struct) (*envInstance, error) {
	id, err := getString(req, "env_id")
	if err != nil {
		return nil, err
	}
	return s.envManager.GetEnv(id)
}
