package experience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/rules"
)

// ErrNoPersistence is returned when reading persisted experiences from a
// collector that was created without a persistence layer
var ErrNoPersistence = errors.New("experience persistence is not configured")

// collectorVersion is stamped into every experience's metadata
const collectorVersion = "1.0.0"

// CollectorStats summarises what a collector has seen
type CollectorStats struct {
	Experiences int64
	Episodes    int64
	Goals       int64
	Timeouts    int64
	Collisions  int64
	TotalScore  float64
	Persisted   int64
}

// Collector turns environment transitions into experiences. It keeps them
// in a ring buffer for replay and, when a persistence layer is set, writes
// each finished episode to it. Safe for use by several environments.
type Collector struct {
	mu          sync.Mutex
	buffer      *Buffer
	persistence PersistenceLayer
	pending     []*Experience
	stats       CollectorStats
	logger      zerolog.Logger
}

var _ game.ExperienceCollector = (*Collector)(nil)

// NewCollector creates a collector; persistence may be nil
func NewCollector(capacity int, persistence PersistenceLayer, logger zerolog.Logger) *Collector {
	return &Collector{
		buffer:      NewBuffer(capacity, logger),
		persistence: persistence,
		logger:      logger.With().Str("component", "experience_collector").Logger(),
	}
}

// OnStep records one transition
func (c *Collector) OnStep(t game.Transition) {
	mask := make([]bool, len(t.ActionMask))
	copy(mask, t.ActionMask[:])

	exp := &Experience{
		ID:          uuid.New().String(),
		EnvID:       t.EnvID,
		Episode:     t.Episode,
		Step:        t.Step,
		State:       ToTensorState(t.State),
		Action:      int(t.Action),
		ActionMask:  mask,
		Reward:      t.Reward,
		NextState:   ToTensorState(t.NextState),
		Done:        t.Done,
		Outcome:     string(t.Outcome),
		Collision:   t.Collision,
		CollectedAt: time.Now(),
		Metadata: map[string]string{
			"collector_version": collectorVersion,
		},
	}

	if err := c.buffer.Add(exp); err != nil {
		c.logger.Warn().Err(err).Str("env_id", t.EnvID).Msg("Dropping experience")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Experiences++
	if t.Collision {
		c.stats.Collisions++
	}
	if c.persistence != nil {
		c.pending = append(c.pending, exp)
	}

	c.logger.Debug().
		Str("experience_id", exp.ID).
		Str("env_id", t.EnvID).
		Int("step", t.Step).
		Float64("reward", t.Reward).
		Bool("done", t.Done).
		Msg("Collected experience")
}

// OnEpisodeEnd updates statistics and persists the pending experiences
func (c *Collector) OnEpisodeEnd(summary game.EpisodeSummary) {
	c.mu.Lock()
	c.stats.Episodes++
	c.stats.TotalScore += summary.Score
	switch summary.Outcome {
	case rules.OutcomeGoal:
		c.stats.Goals++
	case rules.OutcomeTimeout:
		c.stats.Timeouts++
	}
	c.mu.Unlock()

	c.logger.Info().
		Str("env_id", summary.EnvID).
		Int("episode", summary.Episode).
		Str("outcome", string(summary.Outcome)).
		Int("steps", summary.Steps).
		Int("optimal_length", summary.OptimalLength).
		Float64("score", summary.Score).
		Msg("Episode ended, finalizing experience collection")

	if err := c.Flush(context.Background()); err != nil {
		c.logger.Error().Err(err).Str("env_id", summary.EnvID).Msg("Failed to persist experiences")
	}
}

// Flush writes pending experiences to the persistence layer
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persistence == nil || len(c.pending) == 0 {
		return nil
	}
	if err := c.persistence.Write(ctx, c.pending); err != nil {
		return err
	}
	c.stats.Persisted += int64(len(c.pending))
	c.pending = c.pending[:0]
	return nil
}

// Buffer exposes the replay buffer
func (c *Collector) Buffer() *Buffer { return c.buffer }

// ReadPersisted returns up to limit stored experiences for envID, every
// environment when envID is empty. Experiences of an unfinished episode are
// not visible until it ends.
func (c *Collector) ReadPersisted(ctx context.Context, envID string, limit int) ([]*Experience, error) {
	if c.persistence == nil {
		return nil, ErrNoPersistence
	}
	return c.persistence.Read(ctx, envID, limit)
}

// Stats returns a snapshot of the collector statistics
func (c *Collector) Stats() CollectorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close flushes pending experiences and releases the buffer and persistence layer
func (c *Collector) Close(ctx context.Context) error {
	flushErr := c.Flush(ctx)
	if err := c.buffer.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	if c.persistence != nil {
		if err := c.persistence.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	return flushErr
}
