package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// TestState is a simple test state
type TestState struct {
	Count int
	Name  string
	Trail []string
}

func TestStateGraph_BasicFunctionality(t *testing.T) {
	g := NewStateGraph[TestState]()

	g.AddNode("increment", "Increment counter", func(ctx context.Context, state TestState) (TestState, error) {
		state.Count++
		return state, nil
	})
	g.AddNode("check", "Check count", func(ctx context.Context, state TestState) (TestState, error) {
		if state.Name == "" {
			state.Name = "test"
		}
		return state, nil
	})

	g.SetEntryPoint("increment")
	g.AddEdge("increment", "check")
	g.AddEdge("check", END)

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("Failed to compile graph: %v", err)
	}

	finalState, err := runnable.Invoke(context.Background(), TestState{})
	if err != nil {
		t.Fatalf("Failed to invoke graph: %v", err)
	}
	if finalState.Count != 1 {
		t.Errorf("Expected count to be 1, got %d", finalState.Count)
	}
	if finalState.Name != "test" {
		t.Errorf("Expected name to be 'test', got '%s'", finalState.Name)
	}
}

func TestStateGraph_ConditionalEdges(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("loop", "Loop until three", func(ctx context.Context, state TestState) (TestState, error) {
		state.Count++
		state.Trail = append(state.Trail, "loop")
		return state, nil
	})
	g.AddNode("done", "Finish", func(ctx context.Context, state TestState) (TestState, error) {
		state.Trail = append(state.Trail, "done")
		return state, nil
	})
	g.AddConditionalEdge("loop", func(ctx context.Context, state TestState) string {
		if state.Count >= 3 {
			return "done"
		}
		return "loop"
	})
	g.AddEdge("done", END)
	g.SetEntryPoint("loop")

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("Failed to compile graph: %v", err)
	}
	final, err := runnable.Invoke(context.Background(), TestState{})
	if err != nil {
		t.Fatalf("Failed to invoke graph: %v", err)
	}
	if got := strings.Join(final.Trail, ","); got != "loop,loop,loop,done" {
		t.Errorf("unexpected trail %q", got)
	}
}

func TestStateGraph_CompileErrors(t *testing.T) {
	noop := func(ctx context.Context, s TestState) (TestState, error) { return s, nil }

	t.Run("no entry point", func(t *testing.T) {
		g := NewStateGraph[TestState]()
		g.AddNode("a", "", noop)
		if _, err := g.Compile(); !errors.Is(err, ErrEntryPointNotSet) {
			t.Fatalf("expected ErrEntryPointNotSet, got %v", err)
		}
	})

	t.Run("unknown edge target", func(t *testing.T) {
		g := NewStateGraph[TestState]()
		g.AddNode("a", "", noop)
		g.AddEdge("a", "missing")
		g.SetEntryPoint("a")
		if _, err := g.Compile(); !errors.Is(err, ErrNodeNotFound) {
			t.Fatalf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("fan-out rejected", func(t *testing.T) {
		g := NewStateGraph[TestState]()
		g.AddNode("a", "", noop)
		g.AddNode("b", "", noop)
		g.AddNode("c", "", noop)
		g.AddEdge("a", "b")
		g.AddEdge("a", "c")
		g.SetEntryPoint("a")
		if _, err := g.Compile(); !errors.Is(err, ErrAmbiguousEdge) {
			t.Fatalf("expected ErrAmbiguousEdge, got %v", err)
		}
	})
}

func TestStateGraph_NoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("a", "", func(ctx context.Context, s TestState) (TestState, error) { return s, nil })
	g.SetEntryPoint("a")
	runnable, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runnable.Invoke(context.Background(), TestState{}); !errors.Is(err, ErrNoOutgoingEdge) {
		t.Fatalf("expected ErrNoOutgoingEdge, got %v", err)
	}
}

func TestStateGraph_NodeErrorKeepsLastState(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph[TestState]()
	g.AddNode("first", "", func(ctx context.Context, s TestState) (TestState, error) {
		s.Count = 7
		return s, nil
	})
	g.AddNode("second", "", func(ctx context.Context, s TestState) (TestState, error) {
		return s, boom
	})
	g.AddEdge("first", "second")
	g.AddEdge("second", END)
	g.SetEntryPoint("first")

	runnable, _ := g.Compile()
	state, err := runnable.Invoke(context.Background(), TestState{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) || nodeErr.Node != "second" {
		t.Fatalf("expected NodeError for second, got %#v", err)
	}
	if state.Count != 7 {
		t.Errorf("expected last merged state to be returned, got %d", state.Count)
	}
}

func TestStateGraph_PanicRecovered(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("bad", "", func(ctx context.Context, s TestState) (TestState, error) {
		panic("kaboom")
	})
	g.AddEdge("bad", END)
	g.SetEntryPoint("bad")
	runnable, _ := g.Compile()

	_, err := runnable.Invoke(context.Background(), TestState{})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
}

func TestStateGraph_RecursionLimit(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("spin", "", func(ctx context.Context, s TestState) (TestState, error) {
		s.Count++
		return s, nil
	})
	g.AddEdge("spin", "spin")
	g.SetEntryPoint("spin")
	runnable, _ := g.Compile()

	state, err := runnable.InvokeWithConfig(context.Background(), TestState{}, &Config{RecursionLimit: 5})
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
	var recErr *GraphRecursionError
	if !errors.As(err, &recErr) || recErr.Limit != 5 {
		t.Fatalf("expected GraphRecursionError with limit 5, got %v", err)
	}
	if state.Count != 5 {
		t.Errorf("expected 5 executions, got %d", state.Count)
	}
}

func TestStateGraph_DefaultRecursionLimit(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("spin", "", func(ctx context.Context, s TestState) (TestState, error) {
		s.Count++
		return s, nil
	})
	g.AddEdge("spin", "spin")
	g.SetEntryPoint("spin")
	runnable, _ := g.Compile()

	state, err := runnable.Invoke(context.Background(), TestState{})
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
	if state.Count != DefaultRecursionLimit {
		t.Errorf("expected %d executions, got %d", DefaultRecursionLimit, state.Count)
	}
}

func TestStateGraph_NestedGraphSharesBudget(t *testing.T) {
	inner := NewStateGraph[TestState]()
	inner.AddNode("tick", "", func(ctx context.Context, s TestState) (TestState, error) {
		s.Count++
		return s, nil
	})
	inner.AddEdge("tick", "tick")
	inner.SetEntryPoint("tick")
	innerRunnable, err := inner.Compile()
	if err != nil {
		t.Fatal(err)
	}

	outer := NewStateGraph[TestState]()
	outer.AddNode("worker", "", func(ctx context.Context, s TestState) (TestState, error) {
		return innerRunnable.Invoke(ctx, s)
	})
	outer.AddEdge("worker", END)
	outer.SetEntryPoint("worker")
	outerRunnable, _ := outer.Compile()

	_, err = outerRunnable.InvokeWithConfig(context.Background(), TestState{}, &Config{RecursionLimit: 4})
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected nested ErrRecursionLimit, got %v", err)
	}
	var recErr *GraphRecursionError
	if !errors.As(err, &recErr) || recErr.Limit != 4 {
		t.Fatalf("expected the outer budget of 4, got %v", err)
	}
}

func TestStateGraph_RemainingSteps(t *testing.T) {
	var seen []int
	g := NewStateGraph[TestState]()
	g.AddNode("a", "", func(ctx context.Context, s TestState) (TestState, error) {
		n, ok := RemainingSteps(ctx)
		if !ok {
			t.Error("expected budget inside a running graph")
		}
		seen = append(seen, n)
		return s, nil
	})
	g.AddNode("b", "", func(ctx context.Context, s TestState) (TestState, error) {
		n, _ := RemainingSteps(ctx)
		seen = append(seen, n)
		return s, nil
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")
	runnable, _ := g.Compile()

	if _, err := runnable.InvokeWithConfig(context.Background(), TestState{}, &Config{RecursionLimit: 10}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != 9 || seen[1] != 8 {
		t.Errorf("unexpected remaining steps %v", seen)
	}
	if _, ok := RemainingSteps(context.Background()); ok {
		t.Error("expected no budget outside a run")
	}
}

func TestStateGraph_ContextCancelled(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.AddNode("a", "", func(ctx context.Context, s TestState) (TestState, error) { return s, nil })
	g.AddEdge("a", END)
	g.SetEntryPoint("a")
	runnable, _ := g.Compile()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runnable.Invoke(ctx, TestState{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStateGraph_SchemaMerge(t *testing.T) {
	g := NewStateGraph[TestState]()
	g.SetSchema(NewStructSchema(TestState{Name: "init"}, func(current, new TestState) (TestState, error) {
		current.Trail = append(current.Trail, new.Trail...)
		current.Count += new.Count
		return current, nil
	}))
	g.AddNode("a", "", func(ctx context.Context, s TestState) (TestState, error) {
		return TestState{Count: 2, Trail: []string{"a"}}, nil
	})
	g.AddNode("b", "", func(ctx context.Context, s TestState) (TestState, error) {
		return TestState{Count: 3, Trail: []string{"b"}}, nil
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")
	runnable, _ := g.Compile()

	final, err := runnable.Invoke(context.Background(), TestState{Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if final.Count != 6 || strings.Join(final.Trail, "") != "ab" {
		t.Errorf("unexpected merged state %+v", final)
	}
}

func TestStateGraph_SchemaMergeError(t *testing.T) {
	rejected := errors.New("history rewritten")
	g := NewStateGraph[TestState]()
	g.SetSchema(NewStructSchema(TestState{}, func(current, new TestState) (TestState, error) {
		if new.Count < current.Count {
			return current, rejected
		}
		return new, nil
	}))
	g.AddNode("a", "", func(ctx context.Context, s TestState) (TestState, error) {
		s.Count = -1
		return s, nil
	})
	g.AddEdge("a", END)
	g.SetEntryPoint("a")
	runnable, _ := g.Compile()

	if _, err := runnable.Invoke(context.Background(), TestState{Count: 1}); !errors.Is(err, rejected) {
		t.Fatalf("expected merge error, got %v", err)
	}
}
