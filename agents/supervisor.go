package agents

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/smallnest/insightgraph/graph"
	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/prebuilt"
	"github.com/tmc/langchaingo/llms"
)

// Node names of the orchestration graph.
const (
	SupervisorNode = "supervisor"
	RetrieverNode  = "retriever"
	AnalystNode    = "analyst"
	VisualizerNode = "visualizer"

	// Finish ends the run.
	Finish = "FINISH"
)

var routeTargets = []string{RetrieverNode, AnalystNode, VisualizerNode, Finish}

// RouteFunction is the function the supervisor model calls to pick the next worker.
var RouteFunction = llms.FunctionDefinition{
	Name:        "route",
	Description: "Worker to route to next and the reason why this worker was chosen.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "A short explanation why this worker was needed",
			},
			"next": map[string]any{
				"type":        "string",
				"enum":        routeTargets,
				"description": "next worker name",
			},
		},
		"required": []string{"reason", "next"},
	},
}

const supervisorPrompt = `You are a supervisor tasked with managing a conversation between the
following workers: retriever, analyst, visualizer. Given the following user request,
respond with the worker to act next. Each worker will perform a
task and respond with their results and status.

The retriever searches the document database, the analyst analyzes the retrieved
data and the visualizer draws charts of it.

The data must be first retrieved and analyzed and only then it can be visualized.

Data is visualized ONLY if the user has asked for it.

When all the workers are finished with their job, respond with FINISH.`

// Decision is the supervisor's routing answer.
type Decision struct {
	Reason string `json:"reason"`
	Next   string `json:"next"`
}

// Supervisor picks the worker to run next.
type Supervisor struct {
	model  llms.Model
	prompt string
}

// NewSupervisor creates a supervisor. An empty prompt selects the default one.
func NewSupervisor(model llms.Model, prompt string) *Supervisor {
	if prompt == "" {
		prompt = supervisorPrompt
	}
	return &Supervisor{model: model, prompt: prompt}
}

// Decide asks the model for the next target and validates it against the
// state. Unusable model answers end the run; model failures are returned.
func (s *Supervisor) Decide(ctx context.Context, state ConversationState) (Decision, error) {
	messages := append([]llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.prompt),
	}, toLLMMessages(state.Messages)...)

	var d Decision
	err := prebuilt.GenerateStructured(ctx, s.model, messages, RouteFunction, &d)
	if err != nil {
		if errors.Is(err, prebuilt.ErrNoStructuredOutput) || errors.Is(err, prebuilt.ErrMalformedStructuredOutput) {
			log.Warn("supervisor: unusable routing answer, finishing: %v", err)
			return Decision{Reason: err.Error(), Next: Finish}, nil
		}
		return Decision{}, err
	}

	next := Validate(d.Next, state)
	if next != d.Next {
		log.Warn("supervisor: %q rerouted to %q", d.Next, next)
		d.Reason = fmt.Sprintf("%s (rerouted from %s)", d.Reason, d.Next)
	}
	d.Next = next
	return d, nil
}

// Validate turns a proposed target into an allowed one. Unknown targets end
// the run. The visualizer is only reachable after both the retriever and the
// analyst ran in the current run; before that the first missing prerequisite
// runs instead. A second visualization in the same run ends it.
func Validate(next string, state ConversationState) string {
	if !slices.Contains(routeTargets, next) {
		return Finish
	}
	if next == VisualizerNode {
		if state.Visited(VisualizerNode) {
			return Finish
		}
		if !state.Visited(RetrieverNode) {
			return RetrieverNode
		}
		if !state.Visited(AnalystNode) {
			return AnalystNode
		}
	}
	return next
}

func (s *Supervisor) node(ctx context.Context, state ConversationState) (ConversationState, error) {
	d, err := s.Decide(ctx, state)
	if err != nil {
		return ConversationState{}, &StepError{Node: SupervisorNode, Err: err}
	}
	log.Info("supervisor: next %s (%s)", d.Next, d.Reason)

	update := ConversationState{Next: d.Next}
	if d.Next != Finish {
		update.Route = []string{d.Next}
	}
	return update, nil
}

func routeFromSupervisor(_ context.Context, state ConversationState) string {
	if state.Next == "" || state.Next == Finish {
		return graph.END
	}
	return state.Next
}
