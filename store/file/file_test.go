package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smallnest/insightgraph/store"
	"github.com/smallnest/insightgraph/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCheckpointStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.CheckpointStore {
		s, err := NewFileCheckpointStore(filepath.Join(t.TempDir(), "threads"))
		require.NoError(t, err)
		return s
	})
}

func TestFileCheckpointStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewFileCheckpointStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileCheckpointStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileCheckpointStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, storetest.Checkpoint("../escape", 1)))

	reopened, err := NewFileCheckpointStore(dir)
	require.NoError(t, err)
	list, err := reopened.List(ctx, "../escape")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "../escape", list[0].ThreadID)

	// thread ids never leave the store directory
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileCheckpointStore_DeleteMissing(t *testing.T) {
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}
