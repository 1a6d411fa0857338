package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/insightgraph/store"
)

// MemoryCheckpointStore keeps checkpoints in memory.
type MemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

// NewMemoryCheckpointStore creates an empty store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
	}
}

// Save stores a copy of the checkpoint.
func (m *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint.ID == "" {
		return fmt.Errorf("checkpoint id is required")
	}
	cp := *checkpoint
	cp.State = append([]byte(nil), checkpoint.State...)

	m.mu.Lock()
	m.checkpoints[cp.ID] = &cp
	m.mu.Unlock()
	return nil
}

// Load retrieves a checkpoint by ID
func (m *MemoryCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	c := *cp
	return &c, nil
}

// List returns the checkpoints of a thread ordered by step.
func (m *MemoryCheckpointStore) List(_ context.Context, threadID string) ([]*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*store.Checkpoint
	for _, cp := range m.checkpoints {
		if cp.ThreadID == threadID {
			c := *cp
			list = append(list, &c)
		}
	}
	store.SortByStep(list)
	return list, nil
}

// Delete removes a checkpoint
func (m *MemoryCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	m.mu.Lock()
	delete(m.checkpoints, checkpointID)
	m.mu.Unlock()
	return nil
}

// Clear removes all checkpoints of a thread.
func (m *MemoryCheckpointStore) Clear(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, cp := range m.checkpoints {
		if cp.ThreadID == threadID {
			delete(m.checkpoints, id)
		}
	}
	return nil
}
