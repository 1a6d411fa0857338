package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/smallnest/insightgraph/store"
	"github.com/smallnest/insightgraph/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCheckpointStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.CheckpointStore {
		return NewMemoryCheckpointStore()
	})
}

func TestMemoryCheckpointStore_CopiesState(t *testing.T) {
	ms := NewMemoryCheckpointStore()
	ctx := context.Background()

	cp := storetest.Checkpoint("t", 1)
	require.NoError(t, ms.Save(ctx, cp))
	cp.State[0] = 'X'

	loaded, err := ms.Load(ctx, cp.ID)
	require.NoError(t, err)
	assert.True(t, json.Valid(loaded.State))
}

func TestMemoryCheckpointStore_RequiresID(t *testing.T) {
	ms := NewMemoryCheckpointStore()
	assert.Error(t, ms.Save(context.Background(), &store.Checkpoint{ThreadID: "t"}))
}
