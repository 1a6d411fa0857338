package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/store"
)

// Session runs a workflow over conversation threads persisted in a
// checkpoint store. Each Ask continues from the latest checkpoint of the thread
// and saves a checkpoint after every node.
type Session struct {
	workflow    *Workflow
	checkpoints store.CheckpointStore
}

// NewSession creates a session.
func NewSession(workflow *Workflow, checkpoints store.CheckpointStore) *Session {
	return &Session{workflow: workflow, checkpoints: checkpoints}
}

// NewThreadID returns a fresh thread id.
func NewThreadID() string {
	return uuid.NewString()
}

// Load returns the latest state of a thread and its step. An unknown thread
// yields an empty state at step 0.
func (s *Session) Load(ctx context.Context, threadID string) (ConversationState, int, error) {
	cp, err := store.Latest(ctx, s.checkpoints, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ConversationState{}, 0, nil
		}
		return ConversationState{}, 0, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	var state ConversationState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return ConversationState{}, 0, fmt.Errorf("failed to decode checkpoint %s: %w", cp.ID, err)
	}
	return state, cp.Step, nil
}

// Ask runs query on the thread. Checkpoints that fail to save are logged and
// do not abort the run.
func (s *Session) Ask(ctx context.Context, threadID, query string) (Result, error) {
	state, step, err := s.Load(ctx, threadID)
	if err != nil {
		return Result{}, err
	}

	ctx = WithStepHook(ctx, func(ctx context.Context, node string, state ConversationState) {
		step++
		if err := s.save(ctx, threadID, step, node, state); err != nil {
			log.Warn("thread %s: checkpoint after %s not saved: %v", threadID, node, err)
		}
	})
	return s.workflow.Run(ctx, state, query)
}

// Clear forgets a thread.
func (s *Session) Clear(ctx context.Context, threadID string) error {
	return s.checkpoints.Clear(ctx, threadID)
}

func (s *Session) save(ctx context.Context, threadID string, step int, node string, state ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.checkpoints.Save(ctx, &store.Checkpoint{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		RunID:     RunID(ctx),
		Step:      step,
		NodeName:  node,
		State:     data,
		Timestamp: time.Now(),
	})
}
