package agents

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// toLLMMessages converts the conversation for the model. Worker messages become
// AI messages prefixed with the worker name so the model can tell them apart.
func toLLMMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case RoleWorker:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, fmt.Sprintf("[%s] %s", m.Name, m.Content)))
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		}
	}
	return out
}

func firstChoice(resp *llms.ContentResponse) (*llms.ContentChoice, bool) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, false
	}
	return resp.Choices[0], true
}
