package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/smallnest/insightgraph/llms/llmtest"
	"github.com/smallnest/insightgraph/rag"
	ragstore "github.com/smallnest/insightgraph/rag/store"
	"github.com/smallnest/insightgraph/sandbox"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM plays every role of the workflow, dispatching on the tools offered.
type fakeLLM struct {
	mu sync.Mutex

	// routes are consumed by supervisor calls; FINISH once exhausted.
	routes        []string
	supervisorErr error
	// supervisorText makes the supervisor answer with prose instead of a route.
	supervisorText string

	retrieverLoops bool
	analystErr     error
	chartAnswer    string

	supervisorCalls int
	analystCalls    int
}

func (f *fakeLLM) model() *llmtest.Model {
	return llmtest.Repeat(f.respond)
}

func (f *fakeLLM) respond(ctx context.Context, msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
	switch toolName(opts) {
	case "route":
		return f.supervisor(ctx, msgs, opts)
	case "search_documents":
		if !f.retrieverLoops && lastIsTool(msgs) {
			return llmtest.Text("Found loss ratios for 2019 to 2023.")(ctx, msgs, opts)
		}
		return llmtest.ToolCall("search_documents", map[string]string{"input": "auto insurance losses"})(ctx, msgs, opts)
	case "python_repl":
		if lastIsTool(msgs) {
			return llmtest.Text(f.chartAnswer)(ctx, msgs, opts)
		}
		return llmtest.ToolCall("python_repl", map[string]string{"input": "print('/tmp/chart.png')"})(ctx, msgs, opts)
	default:
		f.mu.Lock()
		f.analystCalls++
		f.mu.Unlock()
		if f.analystErr != nil {
			return nil, f.analystErr
		}
		return llmtest.Text("Losses peaked in 2021.")(ctx, msgs, opts)
	}
}

func (f *fakeLLM) supervisor(ctx context.Context, msgs []llms.MessageContent, opts llms.CallOptions) (*llms.ContentResponse, error) {
	f.mu.Lock()
	f.supervisorCalls++
	next := Finish
	if len(f.routes) > 0 {
		next, f.routes = f.routes[0], f.routes[1:]
	}
	f.mu.Unlock()

	if f.supervisorErr != nil {
		return nil, f.supervisorErr
	}
	if f.supervisorText != "" {
		return llmtest.Text(f.supervisorText)(ctx, msgs, opts)
	}
	return llmtest.ToolCall("route", Decision{Reason: "because", Next: next})(ctx, msgs, opts)
}

func toolName(opts llms.CallOptions) string {
	for _, t := range opts.Tools {
		if t.Function != nil {
			return t.Function.Name
		}
	}
	return ""
}

func lastIsTool(msgs []llms.MessageContent) bool {
	return len(msgs) > 0 && msgs[len(msgs)-1].Role == llms.ChatMessageTypeTool
}

type fakeExecutor struct {
	mu    sync.Mutex
	codes []string
	// result replaces the default single chart when set.
	result *sandbox.Result
}

func (e *fakeExecutor) Execute(_ context.Context, code string) (sandbox.Result, error) {
	e.mu.Lock()
	e.codes = append(e.codes, code)
	e.mu.Unlock()
	if e.result != nil {
		return *e.result, nil
	}
	return sandbox.Result{Stdout: "/tmp/chart.png\n", Artifacts: []string{"/tmp/chart.png"}}, nil
}

type mapSources map[string]string

func (m mapSources) Read(name string) (string, error) {
	content, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, errors.ErrUnsupported)
	}
	return content, nil
}

func newIndex(t *testing.T, sources ...string) rag.VectorStore {
	t.Helper()
	index := ragstore.NewInMemoryVectorStore(ragstore.NewMockEmbedder(16))
	var docs []rag.Document
	for _, src := range sources {
		docs = append(docs, rag.Document{
			Content:  "2019, auto, loss ratio 0.7 from " + src,
			Metadata: map[string]any{rag.MetadataSource: src},
		})
	}
	_, err := index.AddDocuments(context.Background(), docs)
	require.NoError(t, err)
	return index
}

func newTestWorkflow(t *testing.T, f *fakeLLM, tune func(*Config)) *Workflow {
	t.Helper()
	cfg := Config{
		Model:    f.model(),
		Index:    newIndex(t, "a.txt"),
		Sources:  mapSources{"a.txt": "full text of a.txt"},
		Executor: &fakeExecutor{},
	}
	if tune != nil {
		tune(&cfg)
	}
	w, err := NewWorkflow(cfg)
	require.NoError(t, err)
	return w
}
