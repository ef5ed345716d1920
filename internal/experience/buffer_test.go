package experience

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/testutil"
)

func createTestExperience(id string, step int) *Experience {
	return &Experience{
		ID:      id,
		EnvID:   "test-env",
		Episode: 1,
		Step:    step,
		State: TensorState{
			Shape: []int32{4, 4, 3},
			Data:  make([]float32, 48),
		},
		Action:     1,
		ActionMask: []bool{true, true, true, true},
		Reward:     0.5,
		NextState: TensorState{
			Shape: []int32{4, 4, 3},
			Data:  make([]float32, 48),
		},
		CollectedAt: time.Now(),
	}
}

func TestBuffer_Creation(t *testing.T) {
	buffer := NewBuffer(100, zerolog.Nop())

	assert.Equal(t, 100, buffer.Capacity())
	assert.Equal(t, 0, buffer.Size())

	assert.Equal(t, DefaultBufferCapacity, NewBuffer(0, zerolog.Nop()).Capacity())
}

func TestBuffer_AddAndGet(t *testing.T) {
	buffer := NewBuffer(10, zerolog.Nop())

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Add(createTestExperience(string(rune('a'+i)), i)))
	}
	assert.Equal(t, 5, buffer.Size())

	experiences := buffer.Get(3)
	require.Len(t, experiences, 3)
	assert.Equal(t, 2, buffer.Size())

	// FIFO
	assert.Equal(t, "a", experiences[0].ID)
	assert.Equal(t, "b", experiences[1].ID)
	assert.Equal(t, "c", experiences[2].ID)

	rest := buffer.Get(10)
	assert.Len(t, rest, 2)
	assert.Empty(t, buffer.Get(1))
}

func TestBuffer_CircularBehavior(t *testing.T) {
	buffer := NewBuffer(3, zerolog.Nop())

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Add(createTestExperience(string(rune('a'+i)), i)))
	}

	assert.Equal(t, 3, buffer.Size())
	stats := buffer.Stats()
	assert.Equal(t, int64(5), stats.TotalAdded)
	assert.Equal(t, int64(2), stats.TotalDropped)
	assert.Equal(t, 100.0, stats.UtilizationPct)

	all := buffer.Get(10)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "d", all[1].ID)
	assert.Equal(t, "e", all[2].ID)
	assert.Zero(t, buffer.Size())
}

func TestBuffer_GetLatest(t *testing.T) {
	buffer := NewBuffer(3, zerolog.Nop())
	for i := 0; i < 4; i++ {
		require.NoError(t, buffer.Add(createTestExperience(string(rune('a'+i)), i)))
	}

	latest := buffer.GetLatest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, "c", latest[0].ID)
	assert.Equal(t, "d", latest[1].ID)
	assert.Equal(t, 3, buffer.Size(), "GetLatest does not consume")

	assert.Len(t, buffer.GetLatest(10), 3)
}

func TestBuffer_Sample(t *testing.T) {
	buffer := NewBuffer(5, zerolog.Nop())
	rng := testutil.NewTestRNG(testutil.DefaultSeed)

	assert.Empty(t, buffer.Sample(3, rng))

	ids := map[string]bool{}
	for i := 0; i < 5; i++ {
		exp := createTestExperience(fmt.Sprintf("s-%d", i), i)
		ids[exp.ID] = true
		require.NoError(t, buffer.Add(exp))
	}

	sample := buffer.Sample(20, rng)
	require.Len(t, sample, 20)
	for _, exp := range sample {
		assert.True(t, ids[exp.ID])
	}
	assert.Equal(t, 5, buffer.Size(), "sampling does not consume")
}

func TestBuffer_Close(t *testing.T) {
	buffer := NewBuffer(4, zerolog.Nop())
	require.NoError(t, buffer.Close())
	require.NoError(t, buffer.Close(), "close is idempotent")

	assert.ErrorIs(t, buffer.Add(createTestExperience("late", 0)), ErrBufferClosed)
}

func TestBuffer_ReadableAfterClose(t *testing.T) {
	buffer := NewBuffer(4, zerolog.Nop())
	require.NoError(t, buffer.Add(createTestExperience("kept", 0)))
	require.NoError(t, buffer.Close())

	assert.Len(t, buffer.Sample(2, testutil.NewTestRNG(testutil.DefaultSeed)), 2)
	got := buffer.Get(5)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].ID)
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	buffer := NewBuffer(1000, zerolog.Nop())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = buffer.Add(createTestExperience(fmt.Sprintf("w%d-%d", w, i), i))
				_ = buffer.Size()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 400, buffer.Size())
	assert.Equal(t, int64(400), buffer.Stats().TotalAdded)
}
