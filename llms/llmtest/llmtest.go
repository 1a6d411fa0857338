// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// ErrExhausted is returned when a Model has no scripted response left.
var ErrExhausted = errors.New("llmtest: no more scripted responses")

// Responder produces the response for one call.
type Responder func(ctx context.Context, messages []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error)

// Call records one GenerateContent invocation.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// Model replays a script of responders, one per call, then falls back to
// Fallback (if set) forever. It is safe for concurrent use.
type Model struct {
	mu       sync.Mutex
	script   []Responder
	Fallback Responder
	calls    []Call
}

// New returns a model answering with the given responders in order.
func New(script ...Responder) *Model {
	return &Model{script: script}
}

// Repeat returns a model answering every call with r.
func Repeat(r Responder) *Model {
	return &Model{Fallback: r}
}

// GenerateContent implements llms.Model.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: messages, Options: opts})
	var next Responder
	if len(m.script) > 0 {
		next, m.script = m.script[0], m.script[1:]
	} else {
		next = m.Fallback
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrExhausted
	}
	return next(ctx, messages, opts)
}

// Call implements llms.Model.
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the recorded calls.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Text answers with plain content.
func Text(content string) Responder {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}, nil
	}
}

// Fail answers with err.
func Fail(err error) Responder {
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return nil, err
	}
}

// ToolCall answers with a single function call whose arguments are args
// marshalled to JSON (or used verbatim when args is a string).
func ToolCall(name string, args any) Responder {
	return ToolCallWithID("call_"+name, name, args)
}

// ToolCallWithID is ToolCall with an explicit call id.
func ToolCallWithID(id, name string, args any) Responder {
	var raw string
	switch a := args.(type) {
	case string:
		raw = a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			panic(err)
		}
		raw = string(b)
	}
	return func(context.Context, []llms.MessageContent, llms.CallOptions) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: raw,
				},
			}},
		}}}, nil
	}
}

// LastText returns the text of the last message of a call, or "".
func LastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	return PartsText(messages[len(messages)-1])
}

// PartsText concatenates the text parts of a message.
func PartsText(m llms.MessageContent) string {
	var s string
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			s += t.Text
		}
	}
	return s
}
