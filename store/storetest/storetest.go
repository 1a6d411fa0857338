// Package storetest holds the behaviour every checkpoint backend must share.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/smallnest/insightgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Checkpoint builds a checkpoint of thread at step with a small JSON state.
func Checkpoint(thread string, step int) *store.Checkpoint {
	return &store.Checkpoint{
		ID:        fmt.Sprintf("%s-%d", thread, step),
		ThreadID:  thread,
		RunID:     "run-1",
		Step:      step,
		NodeName:  "supervisor",
		State:     json.RawMessage(fmt.Sprintf(`{"step":%d}`, step)),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Run exercises a CheckpointStore created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.CheckpointStore) {
	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cp := Checkpoint("thread-a", 1)

		require.NoError(t, s.Save(ctx, cp))
		loaded, err := s.Load(ctx, cp.ID)
		require.NoError(t, err)
		assert.Equal(t, cp.ThreadID, loaded.ThreadID)
		assert.Equal(t, cp.RunID, loaded.RunID)
		assert.Equal(t, cp.Step, loaded.Step)
		assert.Equal(t, cp.NodeName, loaded.NodeName)
		assert.JSONEq(t, string(cp.State), string(loaded.State))
		assert.True(t, cp.Timestamp.Equal(loaded.Timestamp))
	})

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list orders by step and separates threads", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, step := range []int{3, 1, 2} {
			require.NoError(t, s.Save(ctx, Checkpoint("thread-a", step)))
		}
		require.NoError(t, s.Save(ctx, Checkpoint("thread-b", 7)))

		list, err := s.List(ctx, "thread-a")
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, cp := range list {
			assert.Equal(t, i+1, cp.Step)
		}

		latest, err := store.Latest(ctx, s, "thread-a")
		require.NoError(t, err)
		assert.Equal(t, 3, latest.Step)

		_, err = store.Latest(ctx, s, "thread-c")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save replaces same id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cp := Checkpoint("thread-a", 1)
		require.NoError(t, s.Save(ctx, cp))
		cp.NodeName = "analyst"
		require.NoError(t, s.Save(ctx, cp))

		list, err := s.List(ctx, "thread-a")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "analyst", list[0].NodeName)
	})

	t.Run("delete and clear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for step := 1; step <= 3; step++ {
			require.NoError(t, s.Save(ctx, Checkpoint("thread-a", step)))
		}
		require.NoError(t, s.Save(ctx, Checkpoint("thread-b", 1)))

		require.NoError(t, s.Delete(ctx, "thread-a-2"))
		list, err := s.List(ctx, "thread-a")
		require.NoError(t, err)
		assert.Len(t, list, 2)

		require.NoError(t, s.Clear(ctx, "thread-a"))
		list, err = s.List(ctx, "thread-a")
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = s.List(ctx, "thread-b")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
