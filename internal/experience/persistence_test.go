package experience

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filePersistenceConfig(t *testing.T) PersistenceConfig {
	config := DefaultPersistenceConfig()
	config.Type = PersistenceTypeFile
	config.BaseDir = filepath.Join(t.TempDir(), "exp")
	config.RotationInterval = 0
	return config
}

func TestFilePersistence_Creation(t *testing.T) {
	config := filePersistenceConfig(t)
	fp, err := NewFilePersistence(config, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	defer fp.Close()

	info, err := os.Stat(config.BaseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 1, fp.Stats().FilesCreated)
}

func TestFilePersistence_WriteAndRead(t *testing.T) {
	fp, err := NewFilePersistence(filePersistenceConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer fp.Close()

	ctx := context.Background()
	a := createTestExperience("exp-1", 1)
	b := createTestExperience("exp-2", 2)
	b.EnvID = "other-env"
	b.Done = true
	b.Outcome = "goal"
	b.ActionMask = []bool{false, true, true, false}
	b.State.Data[5] = 1

	require.NoError(t, fp.Write(ctx, []*Experience{a, b}))
	stats := fp.Stats()
	assert.Equal(t, int64(2), stats.TotalWritten)
	assert.Positive(t, stats.BytesWritten)

	all, err := fp.Read(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "exp-1", all[0].ID)
	assert.Equal(t, "exp-2", all[1].ID)
	assert.Equal(t, []int32{4, 4, 3}, all[1].State.Shape)
	assert.Equal(t, float32(1), all[1].State.Data[5])
	assert.Equal(t, []bool{false, true, true, false}, all[1].ActionMask)
	assert.Equal(t, "goal", all[1].Outcome)
	assert.True(t, all[1].Done)

	filtered, err := fp.Read(ctx, "other-env", 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "exp-2", filtered[0].ID)

	limited, err := fp.Read(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFilePersistence_SizeRotation(t *testing.T) {
	config := filePersistenceConfig(t)
	config.MaxFileSize = 1
	fp, err := NewFilePersistence(config, zerolog.Nop())
	require.NoError(t, err)
	defer fp.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, fp.Write(ctx, []*Experience{createTestExperience(fmt.Sprintf("r-%d", i), i)}))
	}

	files, err := filepath.Glob(filepath.Join(config.BaseDir, filePattern))
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, 3, fp.Stats().FilesCreated)

	exps, err := fp.Read(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, exps, 3)
	for i, exp := range exps {
		assert.Equal(t, fmt.Sprintf("r-%d", i), exp.ID, "files are read in write order")
	}
}

func TestFilePersistence_TimedRotation(t *testing.T) {
	config := filePersistenceConfig(t)
	config.RotationInterval = 20 * time.Millisecond
	fp, err := NewFilePersistence(config, zerolog.Nop())
	require.NoError(t, err)
	defer fp.Close()

	assert.Eventually(t, func() bool {
		return fp.Stats().FilesCreated >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFilePersistence_Close(t *testing.T) {
	fp, err := NewFilePersistence(filePersistenceConfig(t), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, fp.Close())
	require.NoError(t, fp.Close())

	err = fp.Write(context.Background(), []*Experience{createTestExperience("late", 0)})
	assert.ErrorIs(t, err, ErrPersistenceClosed)
}

func TestFilePersistence_CancelledContext(t *testing.T) {
	fp, err := NewFilePersistence(filePersistenceConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer fp.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = fp.Write(ctx, []*Experience{createTestExperience("x", 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPersistenceLayer(t *testing.T) {
	layer, err := NewPersistenceLayer(DefaultPersistenceConfig(), zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &NullPersistence{}, layer)
	assert.NoError(t, layer.Write(context.Background(), []*Experience{createTestExperience("n", 0)}))
	exps, err := layer.Read(context.Background(), "", 0)
	assert.NoError(t, err)
	assert.Empty(t, exps)
	assert.Equal(t, PersistenceStats{}, layer.Stats())
	assert.NoError(t, layer.Close())

	layer, err = NewPersistenceLayer(PersistenceConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &NullPersistence{}, layer)

	layer, err = NewPersistenceLayer(filePersistenceConfig(t), zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &FilePersistence{}, layer)
	require.NoError(t, layer.Close())

	_, err = NewPersistenceLayer(PersistenceConfig{Type: "s3"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidPersistenceType)
}
