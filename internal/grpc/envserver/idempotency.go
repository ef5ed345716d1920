package envserver

import (
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// idempotencyTTL bounds how long a cached step response can be replayed
	idempotencyTTL = 10 * time.Minute
	// idempotencyCleanupThreshold triggers expiry of old entries
	idempotencyCleanupThreshold = 1000
)

// idempotencyEntry stores a cached response with timestamp
type idempotencyEntry struct {
	response  *structpb.Struct
	createdAt time.Time
}

// IdempotencyManager caches step responses by request id so a retried
// Step does not advance the episode twice.
type IdempotencyManager struct {
	cache map[string]*idempotencyEntry
	ttl   time.Duration
	mu    sync.RWMutex
}

// NewIdempotencyManager creates a new idempotency manager
func NewIdempotencyManager() *IdempotencyManager {
	return &IdempotencyManager{
		cache: make(map[string]*idempotencyEntry),
		ttl:   idempotencyTTL,
	}
}

// Check returns a copy of the cached response for key, or nil
func (im *IdempotencyManager) Check(key string) *structpb.Struct {
	if key == "" {
		return nil
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	entry, exists := im.cache[key]
	if !exists || time.Since(entry.createdAt) > im.ttl {
		return nil
	}
	return proto.Clone(entry.response).(*structpb.Struct)
}

// Store caches a response for key
func (im *IdempotencyManager) Store(key string, resp *structpb.Struct) {
	if key == "" {
		return
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	im.cache[key] = &idempotencyEntry{
		response:  proto.Clone(resp).(*structpb.Struct),
		createdAt: time.Now(),
	}

	if len(im.cache) > idempotencyCleanupThreshold {
		im.cleanupOldEntriesLocked()
	}
}

// Reset forgets every cached response. Called when the episode restarts.
func (im *IdempotencyManager) Reset() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.cache = make(map[string]*idempotencyEntry)
}

// Len returns the number of cached responses
func (im *IdempotencyManager) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.cache)
}

// cleanupOldEntriesLocked must be called with mu held
func (im *IdempotencyManager) cleanupOldEntriesLocked() {
	cutoff := time.Now().Add(-im.ttl)
	for key, entry := range im.cache {
		if entry.createdAt.Before(cutoff) {
			delete(im.cache, key)
		}
	}
}
