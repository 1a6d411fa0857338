package graph

import "fmt"

// GraphRecursionError is returned when a run exhausts its step budget before
// reaching END. Nested graphs invoked from inside a node share the budget of the
// outer run, so the error may originate from either level.
type GraphRecursionError struct {
	// Limit is the configured number of node executions.
	Limit int
	// Node is the node that would have run next.
	Node string
}

func (e *GraphRecursionError) Error() string {
	return fmt.Sprintf("recursion limit of %d reached without hitting END (next node: %s)", e.Limit, e.Node)
}

// Is reports whether target is ErrRecursionLimit.
func (e *GraphRecursionError) Is(target error) bool {
	return target == ErrRecursionLimit
}

// NodeError wraps a failure returned (or a panic raised) by a node function.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
