// Package monitoring watches process health for long-running services.
package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GaugeFunc reports a current count for a named component, e.g. hosted
// environments or buffered experiences.
type GaugeFunc func() int

// MonitorConfig controls sampling and alerting
type MonitorConfig struct {
	Interval       time.Duration
	AlertThreshold int
	AlertCooldown  time.Duration
}

// DefaultMonitorConfig returns the settings used by the env server
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:       30 * time.Second,
		AlertThreshold: 1000,
		AlertCooldown:  5 * time.Minute,
	}
}

// Snapshot is one sample of goroutine and component counts
type Snapshot struct {
	Goroutines int            `json:"goroutines"`
	Baseline   int            `json:"baseline"`
	Peak       int            `json:"peak"`
	Growth     int            `json:"growth"`
	Components map[string]int `json:"components"`
}

// GoroutineMonitor samples goroutine counts alongside registered gauges
// and warns when the count crosses a threshold.
type GoroutineMonitor struct {
	mu        sync.RWMutex
	config    MonitorConfig
	baseline  int
	current   int
	peak      int
	lastAlert time.Time
	gauges    map[string]GaugeFunc
	last      map[string]int
	logger    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGoroutineMonitor records the current goroutine count as baseline
func NewGoroutineMonitor(config MonitorConfig, logger zerolog.Logger) *GoroutineMonitor {
	defaults := DefaultMonitorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.AlertThreshold <= 0 {
		config.AlertThreshold = defaults.AlertThreshold
	}
	if config.AlertCooldown <= 0 {
		config.AlertCooldown = defaults.AlertCooldown
	}

	baseline := runtime.NumGoroutine()
	return &GoroutineMonitor{
		config:   config,
		baseline: baseline,
		current:  baseline,
		peak:     baseline,
		gauges:   make(map[string]GaugeFunc),
		last:     make(map[string]int),
		logger:   logger.With().Str("component", "goroutine_monitor").Logger(),
	}
}

// Register adds a gauge sampled on every check
func (gm *GoroutineMonitor) Register(name string, gauge GaugeFunc) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.gauges[name] = gauge
}

// Start begins periodic sampling until ctx is done or Stop is called
func (gm *GoroutineMonitor) Start(ctx context.Context) {
	gm.mu.Lock()
	if gm.cancel != nil {
		gm.mu.Unlock()
		return
	}
	ctx, gm.cancel = context.WithCancel(ctx)
	gm.mu.Unlock()

	gm.wg.Add(1)
	go gm.run(ctx)

	gm.logger.Info().
		Int("baseline", gm.baseline).
		Dur("interval", gm.config.Interval).
		Msg("Started goroutine monitoring")
}

// Stop halts sampling and waits for the loop to exit
func (gm *GoroutineMonitor) Stop() {
	gm.mu.Lock()
	cancel := gm.cancel
	gm.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	gm.wg.Wait()
}

func (gm *GoroutineMonitor) run(ctx context.Context) {
	defer gm.wg.Done()

	ticker := time.NewTicker(gm.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.Check(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Check takes one sample and returns it
func (gm *GoroutineMonitor) Check(now time.Time) Snapshot {
	current := runtime.NumGoroutine()

	gm.mu.RLock()
	gauges := make(map[string]GaugeFunc, len(gm.gauges))
	for name, g := range gm.gauges {
		gauges[name] = g
	}
	gm.mu.RUnlock()

	// Gauges may take their own locks
	counts := make(map[string]int, len(gauges))
	for name, g := range gauges {
		counts[name] = g()
	}

	gm.mu.Lock()
	gm.current = current
	if current > gm.peak {
		gm.peak = current
	}
	gm.last = counts
	shouldAlert := current > gm.config.AlertThreshold &&
		(gm.lastAlert.IsZero() || now.Sub(gm.lastAlert) >= gm.config.AlertCooldown)
	if shouldAlert {
		gm.lastAlert = now
	}
	snap := gm.snapshotLocked()
	gm.mu.Unlock()

	event := gm.logger.Debug().
		Int("goroutines", snap.Goroutines).
		Int("peak", snap.Peak).
		Int("growth", snap.Growth)
	for name, count := range counts {
		event = event.Int(name, count)
	}
	event.Msg("Goroutine metrics")

	if shouldAlert {
		gm.logger.Warn().
			Int("goroutines", current).
			Int("threshold", gm.config.AlertThreshold).
			Msg("High goroutine count detected - possible leak")
	}
	return snap
}

// Snapshot returns the most recent sample
func (gm *GoroutineMonitor) Snapshot() Snapshot {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.snapshotLocked()
}

func (gm *GoroutineMonitor) snapshotLocked() Snapshot {
	components := make(map[string]int, len(gm.last))
	for k, v := range gm.last {
		components[k] = v
	}
	return Snapshot{
		Goroutines: gm.current,
		Baseline:   gm.baseline,
		Peak:       gm.peak,
		Growth:     gm.current - gm.baseline,
		Components: components,
	}
}
