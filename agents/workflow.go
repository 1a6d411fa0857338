package agents

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/smallnest/insightgraph/graph"
	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/rag"
	"github.com/smallnest/insightgraph/sandbox"
	"github.com/tmc/langchaingo/llms"
)

// DefaultRecursionLimit is the step budget of one run, shared with the
// workers' tool loops.
const DefaultRecursionLimit = 30

// Config wires the collaborators of a Workflow.
type Config struct {
	Model    llms.Model
	Index    rag.VectorStore
	Sources  SourceReader
	Executor sandbox.Executor

	// Optional tuning; zero values select the defaults.
	RecursionLimit          int
	RetrieverMaxIterations  int
	VisualizerMaxIterations int
	SearchResults           int
	SupervisorPrompt        string
}

// Workflow is the compiled supervisor graph.
type Workflow struct {
	runnable       *graph.StateRunnable[ConversationState]
	recursionLimit int
}

// Result is what a run produced.
type Result struct {
	RunID string
	State ConversationState
	// Answer is the content of the last message.
	Answer        string
	Visualization *Visualization
}

// StepHook observes the state after every completed node of a run.
type StepHook func(ctx context.Context, node string, state ConversationState)

type stepHookKey struct{}

// WithStepHook returns a context whose runs report every completed node to hook.
func WithStepHook(ctx context.Context, hook StepHook) context.Context {
	return context.WithValue(ctx, stepHookKey{}, hook)
}

// NewWorkflow builds the graph: supervisor as entry point, one node per worker,
// every worker edge leading back to the supervisor.
func NewWorkflow(cfg Config) (*Workflow, error) {
	if cfg.Model == nil || cfg.Index == nil || cfg.Sources == nil || cfg.Executor == nil {
		return nil, errors.New("agents: model, index, sources and executor are required")
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = DefaultRecursionLimit
	}

	supervisor := NewSupervisor(cfg.Model, cfg.SupervisorPrompt)
	retriever := NewRetriever(cfg.Model, cfg.Index, cfg.Sources, cfg.RetrieverMaxIterations, cfg.SearchResults)
	analyst := NewAnalyst(cfg.Model)
	visualizer := NewVisualizer(cfg.Model, cfg.Executor, cfg.VisualizerMaxIterations)

	g := graph.NewStateGraph[ConversationState]()
	g.SetSchema(newStateSchema())

	g.AddNode(SupervisorNode, "Routes the conversation to the next worker", supervisor.node)
	g.AddNode(RetrieverNode, "Searches the document index", retriever.node)
	g.AddNode(AnalystNode, "Analyzes the retrieved documents", analyst.node)
	g.AddNode(VisualizerNode, "Charts the retrieved documents", visualizer.node)

	g.SetEntryPoint(SupervisorNode)
	g.AddConditionalEdge(SupervisorNode, routeFromSupervisor)
	for _, worker := range []string{RetrieverNode, AnalystNode, VisualizerNode} {
		g.AddEdge(worker, SupervisorNode)
	}

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	runnable.AddListener(graph.NodeListenerFunc[ConversationState](notifyStepHook))

	return &Workflow{runnable: runnable, recursionLimit: cfg.RecursionLimit}, nil
}

// AddListener registers a listener for every run of the workflow.
func (w *Workflow) AddListener(l graph.NodeListener[ConversationState]) {
	w.runnable.AddListener(l)
}

// Run appends query as a user message to state and runs the graph until the
// supervisor finishes. Route and Visualization are reset first, so they
// describe this run only.
//
// On failure the returned Result holds the state reached so far. Running out
// of steps yields ErrNotConverged, collaborator failures a *StepError.
func (w *Workflow) Run(ctx context.Context, state ConversationState, query string) (Result, error) {
	state.Messages = append(slices.Clip(state.Messages), UserMessage(query))
	state.Route = nil
	state.Visualization = nil
	state.Next = ""

	runID := uuid.NewString()
	log.Debug("run %s: %q", runID, query)

	final, err := w.runnable.InvokeWithConfig(ctx, state, &graph.Config{
		RecursionLimit: w.recursionLimit,
		Metadata:       map[string]any{"run_id": runID},
	})

	res := Result{RunID: runID, State: final, Visualization: final.Visualization}
	if last, ok := final.LastMessage(); ok {
		res.Answer = last.Content
	}
	if err != nil {
		log.Error("run %s failed: %v", runID, err)
		return res, classify(err)
	}
	return res, nil
}

func notifyStepHook(ctx context.Context, event graph.NodeEvent, node string, state ConversationState, _ error) {
	if event != graph.NodeEventComplete {
		return
	}
	if hook, ok := ctx.Value(stepHookKey{}).(StepHook); ok && hook != nil {
		hook(ctx, node, state)
	}
}

// RunID returns the id of the run executing in ctx, if any.
func RunID(ctx context.Context) string {
	if cfg := graph.GetConfig(ctx); cfg != nil {
		if id, ok := cfg.Metadata["run_id"].(string); ok {
			return id
		}
	}
	return ""
}
