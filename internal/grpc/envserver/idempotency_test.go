package envserver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestIdempotencyManager(t *testing.T) {
	im := NewIdempotencyManager()
	resp := &structpb.Struct{Fields: map[string]*structpb.Value{
		"step": structpb.NewNumberValue(1),
	}}

	assert.Nil(t, im.Check("req-1"))

	im.Store("req-1", resp)
	cached := im.Check("req-1")
	require.NotNil(t, cached)
	assert.Equal(t, 1.0, cached.GetFields()["step"].GetNumberValue())

	cached.Fields["step"] = structpb.NewNumberValue(99)
	assert.Equal(t, 1.0, im.Check("req-1").GetFields()["step"].GetNumberValue(), "callers get copies")

	im.Store("", resp)
	assert.Nil(t, im.Check(""), "empty keys are never cached")
	assert.Equal(t, 1, im.Len())

	im.Reset()
	assert.Nil(t, im.Check("req-1"))
	assert.Zero(t, im.Len())
}

func TestIdempotencyManager_Expiry(t *testing.T) {
	im := NewIdempotencyManager()
	im.Store("old", &structpb.Struct{})

	im.mu.Lock()
	im.cache["old"].createdAt = time.Now().Add(-2 * idempotencyTTL)
	im.mu.Unlock()
	assert.Nil(t, im.Check("old"))

	for i := 0; i < idempotencyCleanupThreshold; i++ {
		im.Store(fmt.Sprintf("k-%d", i), &structpb.Struct{})
	}
	assert.Equal(t, idempotencyCleanupThreshold, im.Len(), "the expired entry is dropped once the cache grows")
}
