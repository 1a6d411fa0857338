package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/smallnest/insightgraph/graph"
	"github.com/smallnest/insightgraph/llms/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// MockTool echoes its input.
type MockTool struct {
	name   string
	err    error
	inputs []string
}

func (t *MockTool) Name() string        { return t.name }
func (t *MockTool) Description() string { return "mock tool " + t.name }
func (t *MockTool) Call(ctx context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	if t.err != nil {
		return "", t.err
	}
	return fmt.Sprintf("Executed %s with %s", t.name, input), nil
}

func question(q string) ToolAgentState {
	return ToolAgentState{Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, q)}}
}

func TestToolAgent_CallsToolThenAnswers(t *testing.T) {
	search := &MockTool{name: "search"}
	model := llmtest.New(
		llmtest.ToolCall("search", map[string]string{"input": "hurricanes 2005"}),
		llmtest.Text("2005 was the costliest year."),
	)

	agent, err := CreateToolAgent(model, []tools.Tool{search}, WithSystemPrompt("be brief"))
	require.NoError(t, err)

	state, err := agent.Invoke(context.Background(), question("Which year was costliest?"))
	require.NoError(t, err)

	assert.Equal(t, []string{"hurricanes 2005"}, search.inputs)
	assert.Equal(t, "2005 was the costliest year.", state.FinalAnswer())
	assert.Equal(t, 2, state.Iterations)
	require.Len(t, state.Messages, 4)

	resp, ok := state.Messages[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_search", resp.ToolCallID)
	assert.Equal(t, "Executed search with hurricanes 2005", resp.Content)

	calls := model.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, calls[0].Messages[0].Role)
	assert.Equal(t, "be brief", llmtest.PartsText(calls[0].Messages[0]))
	require.Len(t, calls[0].Options.Tools, 1)
	assert.Equal(t, "search", calls[0].Options.Tools[0].Function.Name)
}

func TestToolAgent_ToolErrorIsFedBack(t *testing.T) {
	broken := &MockTool{name: "python", err: errors.New("SyntaxError")}
	model := llmtest.New(
		llmtest.ToolCall("python", map[string]string{"input": "print("}),
		llmtest.Text("nothing to visualize"),
	)
	agent, err := CreateToolAgent(model, []tools.Tool{broken})
	require.NoError(t, err)

	state, err := agent.Invoke(context.Background(), question("plot it"))
	require.NoError(t, err)
	resp := state.Messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Contains(t, resp.Content, "SyntaxError")
	assert.Equal(t, "nothing to visualize", state.FinalAnswer())
}

func TestToolAgent_UnknownTool(t *testing.T) {
	model := llmtest.New(
		llmtest.ToolCall("missing", map[string]string{"input": "x"}),
		llmtest.Text("done"),
	)
	agent, err := CreateToolAgent(model, nil)
	require.NoError(t, err)

	state, err := agent.Invoke(context.Background(), question("q"))
	require.NoError(t, err)
	resp := state.Messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Contains(t, resp.Content, ErrToolNotFound.Error())
}

func TestToolAgent_MaxIterations(t *testing.T) {
	search := &MockTool{name: "search"}
	model := llmtest.Repeat(llmtest.ToolCall("search", map[string]string{"input": "again"}))

	agent, err := CreateToolAgent(model, []tools.Tool{search}, WithMaxIterations(3))
	require.NoError(t, err)

	_, err = agent.InvokeWithConfig(context.Background(), question("q"), &graph.Config{RecursionLimit: 100})
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.False(t, errors.Is(err, graph.ErrRecursionLimit))
	assert.Len(t, search.inputs, 3)
	assert.Len(t, model.Calls(), 3)
}

func TestToolAgent_SharesOuterBudget(t *testing.T) {
	search := &MockTool{name: "search"}
	model := llmtest.Repeat(llmtest.ToolCall("search", map[string]string{"input": "again"}))
	agent, err := CreateToolAgent(model, []tools.Tool{search}, WithMaxIterations(50))
	require.NoError(t, err)

	outer := graph.NewStateGraph[ToolAgentState]()
	outer.AddNode("worker", "", func(ctx context.Context, s ToolAgentState) (ToolAgentState, error) {
		return agent.Invoke(ctx, s)
	})
	outer.AddEdge("worker", graph.END)
	outer.SetEntryPoint("worker")
	runnable, err := outer.Compile()
	require.NoError(t, err)

	_, err = runnable.InvokeWithConfig(context.Background(), question("q"), &graph.Config{RecursionLimit: 6})
	require.ErrorIs(t, err, graph.ErrRecursionLimit)
	assert.False(t, errors.Is(err, ErrMaxIterations))
}

func TestToolAgent_ModelError(t *testing.T) {
	boom := errors.New("rate limited")
	agent, err := CreateToolAgent(llmtest.New(llmtest.Fail(boom)), nil)
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), question("q"))
	assert.ErrorIs(t, err, boom)
}

func TestCreateToolAgent_Validation(t *testing.T) {
	_, err := CreateToolAgent(nil, nil)
	assert.Error(t, err)

	_, err = CreateToolAgent(llmtest.New(), nil, WithMaxIterations(0))
	assert.Error(t, err)
}

func TestInvocationFromCall(t *testing.T) {
	call := func(args string) llms.ToolCall {
		return llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "t", Arguments: args}}
	}
	assert.Equal(t, "x", invocationFromCall(call(`{"input":"x"}`)).ToolInput)
	assert.Equal(t, "plain", invocationFromCall(call(`plain`)).ToolInput)
	assert.Equal(t, `{"query":"q"}`, invocationFromCall(call(`{"query":"q"}`)).ToolInput)
}
