package envserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/events"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/events/subscribers"
)

var (
	// ErrEnvNotFound is returned for unknown environment ids
	ErrEnvNotFound = errors.New("environment not found")
	// ErrAtCapacity is returned when the server already hosts MaxEnvs environments
	ErrAtCapacity = errors.New("server at capacity")
)

// defaultCleanupInterval is how often idle environments are looked for
const defaultCleanupInterval = time.Minute

// envInstance is one hosted environment. mu serializes every call into env.
type envInstance struct {
	id  string
	env *game.Environment
	mu  sync.Mutex

	createdAt    time.Time
	lastActivity time.Time

	idempotency *IdempotencyManager
}

// touch must be called with mu held
func (inst *envInstance) touch() {
	inst.lastActivity = time.Now()
}

// EnvManager owns every hosted environment
type EnvManager struct {
	mu              sync.RWMutex
	envs            map[string]*envInstance
	maxEnvs         int
	idleTimeout     time.Duration
	cleanupInterval time.Duration
	collector       game.ExperienceCollector
	logEvents       bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ManagerConfig controls environment hosting limits
type ManagerConfig struct {
	// MaxEnvs <= 0 means unlimited
	MaxEnvs int
	// IdleTimeout <= 0 disables idle cleanup
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// LogEvents attaches a debug-level event logger to every environment
	LogEvents bool
}

// NewEnvManager creates a manager; collector may be nil
func NewEnvManager(config ManagerConfig, collector game.ExperienceCollector) *EnvManager {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaultCleanupInterval
	}
	return &EnvManager{
		envs:            make(map[string]*envInstance),
		maxEnvs:         config.MaxEnvs,
		idleTimeout:     config.IdleTimeout,
		cleanupInterval: config.CleanupInterval,
		collector:       collector,
		logEvents:       config.LogEvents,
	}
}

// Start launches the idle cleanup loop
func (m *EnvManager) Start() {
	if m.idleTimeout <= 0 || m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.runCleanup(ctx)
}

// Stop ends the cleanup loop
func (m *EnvManager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.cancel = nil
}

// CreateEnv builds and registers a new environment from cfg
func (m *EnvManager) CreateEnv(cfg game.Config) (*envInstance, error) {
	m.mu.RLock()
	current := len(m.envs)
	m.mu.RUnlock()

	if m.maxEnvs > 0 && current >= m.maxEnvs {
		log.Warn().
			Int("current_envs", current).
			Int("max_envs", m.maxEnvs).
			Msg("Rejecting environment creation - server at capacity")
		return nil, fmt.Errorf("%d/%d environments active: %w", current, m.maxEnvs, ErrAtCapacity)
	}

	cfg.EnvID = uuid.New().String()
	cfg.EventBus = events.NewEventBus(cfg.Logger.With().Str("env_id", cfg.EnvID).Logger())
	if m.collector != nil {
		cfg.Collector = m.collector
	}
	if m.logEvents {
		cfg.EventBus.Subscribe(subscribers.NewLoggerSubscriber("event-logger-"+cfg.EnvID, cfg.Logger, zerolog.DebugLevel))
	}

	env, err := game.NewEnvironment(cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inst := &envInstance{
		id:           cfg.EnvID,
		env:          env,
		createdAt:    now,
		lastActivity: now,
		idempotency:  NewIdempotencyManager(),
	}

	m.mu.Lock()
	if m.maxEnvs > 0 && len(m.envs) >= m.maxEnvs {
		m.mu.Unlock()
		return nil, fmt.Errorf("%d/%d environments active: %w", len(m.envs), m.maxEnvs, ErrAtCapacity)
	}
	m.envs[inst.id] = inst
	m.mu.Unlock()

	log.Info().
		Str("env_id", inst.id).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Float64("obstacle_prob", cfg.ObstacleProb).
		Int("droplet_size", int(cfg.DropletSize)).
		Msg("Created environment instance")

	return inst, nil
}

// GetEnv looks an environment up by id
func (m *EnvManager) GetEnv(id string) (*envInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.envs[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrEnvNotFound)
	}
	return inst, nil
}

// CloseEnv removes an environment
func (m *EnvManager) CloseEnv(id string) error {
	m.mu.Lock()
	inst, ok := m.envs[id]
	if ok {
		delete(m.envs, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%q: %w", id, ErrEnvNotFound)
	}

	inst.mu.Lock()
	episodes := inst.env.Episode()
	inst.mu.Unlock()

	log.Info().
		Str("env_id", id).
		Int("episodes", episodes).
		Msg("Closed environment instance")
	return nil
}

// ActiveEnvs returns the number of hosted environments
func (m *EnvManager) ActiveEnvs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.envs)
}

// runCleanup periodically removes idle environments
func (m *EnvManager) runCleanup(ctx context.Context) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Msg("Environment cleanup goroutine panicked")
		}
	}()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdle(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// cleanupIdle removes environments inactive since before now-idleTimeout
func (m *EnvManager) cleanupIdle(now time.Time) int {
	// Collect references first so instance locks are never taken under m.mu.
	m.mu.RLock()
	refs := make([]*envInstance, 0, len(m.envs))
	for _, inst := range m.envs {
		refs = append(refs, inst)
	}
	m.mu.RUnlock()

	var idle []string
	for _, inst := range refs {
		inst.mu.Lock()
		inactive := now.Sub(inst.lastActivity)
		inst.mu.Unlock()

		if inactive > m.idleTimeout {
			idle = append(idle, inst.id)
			log.Info().
				Str("env_id", inst.id).
				Dur("age", now.Sub(inst.createdAt)).
				Dur("inactive", inactive).
				Msg("Cleaning up idle environment")
		}
	}

	if len(idle) == 0 {
		return 0
	}

	m.mu.Lock()
	for _, id := range idle {
		delete(m.envs, id)
	}
	remaining := len(m.envs)
	m.mu.Unlock()

	log.Info().
		Int("cleaned", len(idle)).
		Int("remaining", remaining).
		Msg("Environment cleanup completed")
	return len(idle)
}
