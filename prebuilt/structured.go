package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrNoStructuredOutput is returned when the model neither called the
	// function nor answered with a JSON object.
	ErrNoStructuredOutput = errors.New("model returned no structured output")

	// ErrMalformedStructuredOutput is returned when the function arguments do not
	// decode into the requested type.
	ErrMalformedStructuredOutput = errors.New("model returned malformed structured output")
)

// GenerateStructured asks the model to answer by calling fn and decodes the call
// arguments into out. The function is forced through the tool choice. A model
// that ignores tools and answers with a bare (optionally fenced) JSON object is
// accepted too.
//
// Errors from the model itself are returned wrapped; a missing or undecodable
// answer yields ErrNoStructuredOutput or ErrMalformedStructuredOutput.
func GenerateStructured(ctx context.Context, model llms.Model, messages []llms.MessageContent, fn llms.FunctionDefinition, out any) error {
	resp, err := model.GenerateContent(ctx, messages,
		llms.WithTools([]llms.Tool{{Type: "function", Function: &fn}}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: fn.Name},
		}),
	)
	if err != nil {
		return fmt.Errorf("generate %s: %w", fn.Name, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty response", ErrNoStructuredOutput)
	}
	choice := resp.Choices[0]

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != fn.Name {
			continue
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedStructuredOutput, fn.Name, err)
		}
		return nil
	}

	if raw, ok := jsonObject(choice.Content); ok {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedStructuredOutput, fn.Name, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s was not called", ErrNoStructuredOutput, fn.Name)
}

// jsonObject extracts a JSON object from content, stripping markdown fences.
func jsonObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, true
	}
	return "", false
}
