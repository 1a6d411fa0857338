package agents

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
)

const analystPrompt = `You are a highly skilled data analysis assistant. Your primary role is to analyze the data
provided by the user, uncover meaningful insights, and present findings in a clear, concise and actionable manner.
You don't draw, you don't talk about yourself or do anything else except analyze the data.

- Begin by understanding the user's objectives and the context of the data.
- Identify trends, correlations, anomalies and patterns, and relate them back to the user's goals.
- Communicate results in plain language and finish with the key takeaways.
- Acknowledge uncertainties or limitations, such as insufficient data.`

// Analyst answers the latest user request from the documents in scope with a
// single model call.
type Analyst struct {
	model llms.Model
}

// NewAnalyst creates an analyst.
func NewAnalyst(model llms.Model) *Analyst {
	return &Analyst{model: model}
}

func (a *Analyst) node(ctx context.Context, state ConversationState) (ConversationState, error) {
	user, ok := state.LatestUserMessage()
	if !ok {
		return ConversationState{}, &StepError{Node: AnalystNode, Err: ErrNoUserMessage}
	}

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, analystPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, user.Content),
		llms.TextParts(llms.ChatMessageTypeHuman, state.DocumentsText()),
	})
	if err != nil {
		return ConversationState{}, &StepError{Node: AnalystNode, Err: err}
	}
	choice, ok := firstChoice(resp)
	if !ok {
		return ConversationState{}, &StepError{Node: AnalystNode, Err: errors.New("empty response from model")}
	}

	return ConversationState{
		Messages: []Message{WorkerMessage(AnalystNode, choice.Content)},
	}, nil
}
