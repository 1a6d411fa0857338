package graph

import (
	"context"
	"fmt"

	"github.com/smallnest/insightgraph/log"
)

// StateGraph represents a generic state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
//
// Exactly one node runs at a time. After a node returns, the next node is chosen
// by the conditional edge of that node if one is registered, otherwise by its
// single static edge.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
//	g.AddEdge("increment", graph.END)
//	g.SetEntryPoint("increment")
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to the function choosing the "To" node
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// Schema defines how node results are merged into the state
	Schema StateSchema[S]
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// A conditional edge takes precedence over static edges of the same node.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema StateSchema[S]) {
	g.Schema = schema
}

// Nodes returns the names of the registered nodes.
func (g *StateGraph[S]) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}

// StateRunnable represents a compiled state graph that can be invoked.
type StateRunnable[S any] struct {
	graph     *StateGraph[S]
	listeners []NodeListener[S]
}

// Compile validates the state graph and returns a StateRunnable instance.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	seen := make(map[string]bool, len(g.edges))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok && e.To != END {
			return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
		}
		if seen[e.From] {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousEdge, e.From)
		}
		seen[e.From] = true
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
	}

	return &StateRunnable[S]{graph: g}, nil
}

// AddListener registers a listener for node events of every invocation.
func (r *StateRunnable[S]) AddListener(l NodeListener[S]) *StateRunnable[S] {
	r.listeners = append(r.listeners, l)
	return r
}

// Invoke executes the compiled state graph with the given input state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the compiled state graph with the given input state and config.
//
// Every node execution consumes one step of the run's budget. A graph invoked
// from inside a node of another graph, without its own RecursionLimit, draws from
// the enclosing budget. When the budget is exhausted the run stops with a
// *GraphRecursionError.
//
// On failure the last successfully merged state is returned together with the
// error, so callers can report how far the run got.
func (r *StateRunnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	state := initialState
	if r.graph.Schema != nil {
		var err error
		state, err = r.graph.Schema.Update(r.graph.Schema.Init(), initialState)
		if err != nil {
			return initialState, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
	}

	if config != nil {
		ctx = WithConfig(ctx, config)
	}
	budget := stepBudgetFrom(ctx)
	if config != nil && config.RecursionLimit > 0 {
		budget = &stepBudget{limit: config.RecursionLimit}
	} else if budget == nil {
		budget = &stepBudget{limit: DefaultRecursionLimit}
	}
	ctx = withStepBudget(ctx, budget)

	r.notify(ctx, EventChainStart, "", state, nil)

	current := r.graph.entryPoint
	for current != END {
		if err := ctx.Err(); err != nil {
			r.notify(ctx, NodeEventError, current, state, err)
			return state, err
		}
		if !budget.take() {
			err := &GraphRecursionError{Limit: budget.limit, Node: current}
			r.notify(ctx, NodeEventError, current, state, err)
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.notify(ctx, NodeEventStart, current, state, nil)
		log.Debug("graph: running node %s", current)

		result, err := runNode(ctx, node, state)
		if err != nil {
			r.notify(ctx, NodeEventError, current, state, err)
			return state, &NodeError{Node: current, Err: err}
		}

		if r.graph.Schema != nil {
			result, err = r.graph.Schema.Update(state, result)
			if err != nil {
				err = fmt.Errorf("failed to merge state: %w", err)
				r.notify(ctx, NodeEventError, current, state, err)
				return state, &NodeError{Node: current, Err: err}
			}
		}
		state = result
		r.notify(ctx, NodeEventComplete, current, state, nil)

		next, err := r.next(ctx, current, state)
		if err != nil {
			return state, err
		}
		current = next
	}

	r.notify(ctx, EventChainEnd, END, state, nil)
	return state, nil
}

func (r *StateRunnable[S]) next(ctx context.Context, from string, state S) (string, error) {
	if cond, ok := r.graph.conditionalEdges[from]; ok {
		to := cond(ctx, state)
		if to == "" {
			return "", fmt.Errorf("%w: %s (condition returned no target)", ErrNoOutgoingEdge, from)
		}
		if _, ok := r.graph.nodes[to]; !ok && to != END {
			return "", fmt.Errorf("%w: %s (routed from %s)", ErrNodeNotFound, to, from)
		}
		return to, nil
	}
	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func runNode[S any](ctx context.Context, node Node[S], state S) (result S, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return node.Function(ctx, state)
}
