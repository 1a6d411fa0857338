package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/insightgraph/graph"
	"github.com/smallnest/insightgraph/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ErrMaxIterations is returned when the tool loop wants another model turn
// after using up its iteration limit.
var ErrMaxIterations = errors.New("tool loop exceeded its iteration limit")

// DefaultMaxIterations is the model-turn ceiling used when none is given.
const DefaultMaxIterations = 10

const defaultToolAgentPrompt = `You are a helpful assistant. Use the provided tools to answer the user's question.
When you have enough information, answer without calling any tools.`

// ToolAgentState represents the state of a tool loop.
type ToolAgentState struct {
	Messages   []llms.MessageContent `json:"messages"`
	Iterations int                   `json:"iterations"`
}

// FinalAnswer returns the text of the last AI message.
func (s ToolAgentState) FinalAnswer() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llms.ChatMessageTypeAI {
			return textOf(s.Messages[i])
		}
	}
	return ""
}

// ToolAgentOption configures CreateToolAgent.
type ToolAgentOption func(*toolAgentConfig)

type toolAgentConfig struct {
	systemPrompt  string
	maxIterations int
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) ToolAgentOption {
	return func(c *toolAgentConfig) {
		c.systemPrompt = prompt
	}
}

// WithMaxIterations sets the number of model turns the loop may take.
func WithMaxIterations(n int) ToolAgentOption {
	return func(c *toolAgentConfig) {
		c.maxIterations = n
	}
}

// CreateToolAgent builds a ReAct style graph alternating between an "agent" node
// calling the model and a "tools" node executing the requested tool calls.
//
// The loop ends when the model answers without tool calls. Wanting one more model
// turn than allowed fails with ErrMaxIterations. Each node execution also draws
// from the step budget of the enclosing graph run, if any.
//
// Tool failures are reported back to the model as the tool result; only context
// cancellation aborts the loop.
func CreateToolAgent(model llms.Model, inputTools []tools.Tool, opts ...ToolAgentOption) (*graph.StateRunnable[ToolAgentState], error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	cfg := toolAgentConfig{
		systemPrompt:  defaultToolAgentPrompt,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.maxIterations)
	}

	toolExecutor := NewToolExecutor(inputTools)
	toolDefs := toolExecutor.Definitions()

	workflow := graph.NewStateGraph[ToolAgentState]()

	// Nodes return only the messages they add.
	workflow.SetSchema(graph.NewStructSchema(
		ToolAgentState{},
		func(current, new ToolAgentState) (ToolAgentState, error) {
			current.Messages = append(current.Messages, new.Messages...)
			current.Iterations = max(current.Iterations, new.Iterations)
			return current, nil
		},
	))

	workflow.AddNode("agent", "Tool loop decision maker", func(ctx context.Context, state ToolAgentState) (ToolAgentState, error) {
		if state.Iterations >= cfg.maxIterations {
			return ToolAgentState{}, fmt.Errorf("%w (%d)", ErrMaxIterations, cfg.maxIterations)
		}

		messages := make([]llms.MessageContent, 0, len(state.Messages)+1)
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, cfg.systemPrompt))
		messages = append(messages, state.Messages...)

		callOpts := []llms.CallOption{}
		if len(toolDefs) > 0 {
			callOpts = append(callOpts, llms.WithTools(toolDefs), llms.WithToolChoice("auto"))
		}
		resp, err := model.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return ToolAgentState{}, err
		}
		if len(resp.Choices) == 0 {
			return ToolAgentState{}, errors.New("empty response from model")
		}
		choice := resp.Choices[0]

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}
		if len(aiMsg.Parts) == 0 {
			return ToolAgentState{}, errors.New("empty response from model")
		}

		return ToolAgentState{
			Messages:   []llms.MessageContent{aiMsg},
			Iterations: state.Iterations + 1,
		}, nil
	})

	workflow.AddNode("tools", "Execute tools", func(ctx context.Context, state ToolAgentState) (ToolAgentState, error) {
		calls := pendingToolCalls(state.Messages)
		if len(calls) == 0 {
			return ToolAgentState{}, errors.New("no tool calls to execute")
		}

		var out []llms.MessageContent
		for _, call := range calls {
			inv := invocationFromCall(call)
			result, err := toolExecutor.Execute(ctx, inv)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ToolAgentState{}, ctxErr
				}
				log.Warn("tool %s failed: %v", inv.Tool, err)
				result = fmt.Sprintf("Error: %v", err)
			}
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       inv.Tool,
					Content:    result,
				}},
			})
		}
		return ToolAgentState{Messages: out}, nil
	})

	workflow.AddConditionalEdge("agent", func(ctx context.Context, state ToolAgentState) string {
		if len(pendingToolCalls(state.Messages)) > 0 {
			return "tools"
		}
		return graph.END
	})
	workflow.AddEdge("tools", "agent")
	workflow.SetEntryPoint("agent")

	return workflow.Compile()
}

// pendingToolCalls returns the tool calls of the last message when it is an AI message.
func pendingToolCalls(messages []llms.MessageContent) []llms.ToolCall {
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if last.Role != llms.ChatMessageTypeAI {
		return nil
	}
	var calls []llms.ToolCall
	for _, p := range last.Parts {
		if tc, ok := p.(llms.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

func textOf(m llms.MessageContent) string {
	var s string
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			s += t.Text
		}
	}
	return s
}
