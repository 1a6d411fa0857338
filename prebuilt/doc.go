// Package prebuilt provides reusable graph building blocks on top of package graph.
//
// # Tool loop
//
// CreateToolAgent returns a compiled graph that alternates between a model turn
// and the execution of the tool calls that turn requested:
//
//	agent, err := prebuilt.CreateToolAgent(model, []tools.Tool{search},
//		prebuilt.WithSystemPrompt("Find the documents answering the question."),
//		prebuilt.WithMaxIterations(5),
//	)
//	state, err := agent.Invoke(ctx, prebuilt.ToolAgentState{
//		Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, question)},
//	})
//	answer := state.FinalAnswer()
//
// The loop is bounded twice: by its own iteration limit (ErrMaxIterations) and,
// when invoked from a node of another graph, by the step budget of that run
// (graph.ErrRecursionLimit).
//
// # Structured output
//
// GenerateStructured forces a single function call and decodes its arguments,
// which is how typed answers such as routing decisions and document extractions
// are obtained from the model.
package prebuilt
