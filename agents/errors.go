package agents

import (
	"errors"
	"fmt"

	"github.com/smallnest/insightgraph/graph"
	"github.com/smallnest/insightgraph/prebuilt"
)

var (
	// ErrNotConverged is returned when a run used up its step budget or a worker
	// tool loop its iteration limit. It wraps graph.ErrRecursionLimit or
	// prebuilt.ErrMaxIterations.
	ErrNotConverged = errors.New("run did not converge")

	// ErrNoUserMessage is returned when a run has nothing to answer.
	ErrNoUserMessage = errors.New("conversation has no user message")
)

// StepError reports a collaborator failure inside a node. It aborts the run.
type StepError struct {
	Node string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Node, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func isConvergence(err error) bool {
	return errors.Is(err, graph.ErrRecursionLimit) || errors.Is(err, prebuilt.ErrMaxIterations)
}

// classify maps a graph error to what Run returns.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isConvergence(err) {
		return fmt.Errorf("%w: %w", ErrNotConverged, err)
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}
	return err
}
