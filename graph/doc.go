// Package graph provides the typed, sequential state machine that drives the
// agent workflows of insightgraph.
//
// # Core Concepts
//
// A StateGraph[S] holds named nodes, each a function from state to state, and
// the edges between them. Static edges name a fixed successor, conditional edges
// compute it from the state. The special node END terminates a run.
//
// Exactly one node executes at a time. Every execution consumes one step of the
// run's budget (Config.RecursionLimit, DefaultRecursionLimit when unset). Graphs
// invoked from inside a node share the budget of the enclosing run, so a tool
// loop nested inside a worker cannot outlive the workflow that started it.
//
// # Example Usage
//
//	g := graph.NewStateGraph[Counter]()
//	g.AddNode("inc", "increment", func(ctx context.Context, s Counter) (Counter, error) {
//		s.N++
//		return s, nil
//	})
//	g.AddConditionalEdge("inc", func(ctx context.Context, s Counter) string {
//		if s.N >= 3 {
//			return graph.END
//		}
//		return "inc"
//	})
//	g.SetEntryPoint("inc")
//
//	app, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := app.InvokeWithConfig(ctx, Counter{}, &graph.Config{RecursionLimit: 10})
//
// # Errors
//
// Node failures are wrapped in *NodeError. Running out of steps yields a
// *GraphRecursionError, which matches ErrRecursionLimit with errors.Is even when
// it surfaces through several nested NodeErrors.
//
// # Listeners
//
// NodeListener receives start, complete and error events for every node plus
// chain start/end events. Listeners run synchronously and panics inside them are
// logged and swallowed.
package graph
