package experience

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrBufferClosed is returned when operations are attempted on a closed buffer
	ErrBufferClosed = errors.New("experience buffer is closed")
)

// DefaultBufferCapacity is used when a non-positive capacity is requested
const DefaultBufferCapacity = 10000

// Buffer is a thread-safe circular buffer for experiences. When full, the
// oldest experience is dropped.
type Buffer struct {
	mu       sync.RWMutex
	buffer   []*Experience
	capacity int
	size     int
	head     int // Write position
	tail     int // Read position
	closed   bool

	totalAdded   int64
	totalDropped int64

	logger zerolog.Logger
}

// NewBuffer creates a new experience buffer with the specified capacity
func NewBuffer(capacity int, logger zerolog.Logger) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}

	return &Buffer{
		buffer:   make([]*Experience, capacity),
		capacity: capacity,
		logger:   logger.With().Str("component", "experience_buffer").Logger(),
	}
}

// Add adds an experience to the buffer
func (b *Buffer) Add(exp *Experience) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBufferClosed
	}

	b.push(exp)
	return nil
}

// push must be called with the lock held
func (b *Buffer) push(exp *Experience) {
	if b.size >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.totalDropped++
		b.logger.Debug().
			Int64("dropped_total", b.totalDropped).
			Msg("Buffer full, dropping oldest experience")
	} else {
		b.size++
	}

	b.buffer[b.head] = exp
	b.head = (b.head + 1) % b.capacity
	b.totalAdded++
}

// Get removes and returns up to n experiences, oldest first
func (b *Buffer) Get(n int) []*Experience {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pop(n)
}

// pop must be called with the lock held
func (b *Buffer) pop(n int) []*Experience {
	if n > b.size {
		n = b.size
	}
	if n < 0 {
		n = 0
	}

	result := make([]*Experience, n)
	for i := 0; i < n; i++ {
		result[i] = b.buffer[b.tail]
		b.buffer[b.tail] = nil
		b.tail = (b.tail + 1) % b.capacity
		b.size--
	}
	return result
}

// Sample returns n experiences drawn uniformly with replacement, without
// removing them.
func (b *Buffer) Sample(n int, rng *rand.Rand) []*Experience {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 || n <= 0 {
		return []*Experience{}
	}

	result := make([]*Experience, n)
	for i := range result {
		idx := (b.tail + rng.Intn(b.size)) % b.capacity
		result[i] = b.buffer[idx]
	}
	return result
}

// GetLatest returns the n most recent experiences without removing them
func (b *Buffer) GetLatest(n int) []*Experience {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		n = b.size
	}
	if n < 0 {
		n = 0
	}

	result := make([]*Experience, n)
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		result[i] = b.buffer[(start+i)%b.capacity]
	}
	return result
}

// Size returns the current number of experiences in the buffer
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum capacity of the buffer
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Close rejects further adds. Buffered experiences stay readable.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	b.logger.Info().
		Int64("total_added", b.totalAdded).
		Int64("total_dropped", b.totalDropped).
		Msg("Buffer closed")

	return nil
}

// Stats returns buffer statistics
func (b *Buffer) Stats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BufferStats{
		CurrentSize:    b.size,
		Capacity:       b.capacity,
		TotalAdded:     b.totalAdded,
		TotalDropped:   b.totalDropped,
		UtilizationPct: float64(b.size) / float64(b.capacity) * 100,
	}
}

// BufferStats contains buffer statistics
type BufferStats struct {
	CurrentSize    int
	Capacity       int
	TotalAdded     int64
	TotalDropped   int64
	UtilizationPct float64
}
