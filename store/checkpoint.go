package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a checkpoint or thread has no stored data.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the state of a conversation thread after one graph step.
type Checkpoint struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	// Step increases monotonically across all runs of a thread.
	Step      int             `json:"step"`
	NodeName  string          `json:"node_name"`
	State     json.RawMessage `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
}

// CheckpointStore defines the interface for checkpoint persistence
type CheckpointStore interface {
	// Save stores a checkpoint, replacing one with the same ID.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns the checkpoints of a thread ordered by step.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Delete removes a checkpoint
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints of a thread.
	Clear(ctx context.Context, threadID string) error
}

// Latest returns the checkpoint with the highest step of a thread, or
// ErrNotFound when the thread is empty.
func Latest(ctx context.Context, s CheckpointStore, threadID string) (*Checkpoint, error) {
	list, err := s.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[len(list)-1], nil
}

// SortByStep orders checkpoints by step, then by timestamp.
func SortByStep(list []*Checkpoint) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Step != list[j].Step {
			return list[i].Step < list[j].Step
		}
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
}
