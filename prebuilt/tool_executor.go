package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ErrToolNotFound is returned when an invocation names an unknown tool.
var ErrToolNotFound = errors.New("tool not found")

// ToolInvocation names a tool and the input to call it with.
type ToolInvocation struct {
	Tool      string
	ToolInput string
}

// ToolExecutor dispatches invocations to a fixed set of tools.
type ToolExecutor struct {
	tools map[string]tools.Tool
	order []tools.Tool
}

// NewToolExecutor creates a ToolExecutor for the given tools.
func NewToolExecutor(inputTools []tools.Tool) *ToolExecutor {
	e := &ToolExecutor{tools: make(map[string]tools.Tool, len(inputTools))}
	for _, t := range inputTools {
		e.tools[t.Name()] = t
		e.order = append(e.order, t)
	}
	return e
}

// Execute runs a single invocation.
func (e *ToolExecutor) Execute(ctx context.Context, inv ToolInvocation) (string, error) {
	t, ok := e.tools[inv.Tool]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, inv.Tool)
	}
	return t.Call(ctx, inv.ToolInput)
}

// Definitions describes the tools for function calling. Every tool takes a
// single string argument named "input".
func (e *ToolExecutor) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(e.order))
	for _, t := range e.order {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": fmt.Sprintf("Input for the %s tool", t.Name()),
						},
					},
					"required": []string{"input"},
				},
			},
		})
	}
	return defs
}

// invocationFromCall extracts the "input" argument of a tool call. Arguments
// that are not a JSON object are passed through verbatim.
func invocationFromCall(call llms.ToolCall) ToolInvocation {
	inv := ToolInvocation{Tool: call.FunctionCall.Name, ToolInput: call.FunctionCall.Arguments}
	var args struct {
		Input *string `json:"input"`
	}
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err == nil && args.Input != nil {
		inv.ToolInput = *args.Input
	}
	return inv
}
