package agents

import (
	"context"

	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/prebuilt"
	"github.com/smallnest/insightgraph/rag"
	"github.com/smallnest/insightgraph/tool"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// DefaultRetrieverMaxIterations bounds the model turns of one retrieval.
const DefaultRetrieverMaxIterations = 5

const retrieverPrompt = `You are an intelligent search assistant specialized in querying a vector database
to retrieve relevant information for the user's request.

Your only focus is to understand user inputs, interpret their intent, and translate the
request into queries suitable for searching the vector store with the search_documents tool.
The retrieved data will be forwarded further for processing.
You don't draw, you don't talk about yourself or do anything else except search for data and return it.

- Convert user inputs into similarity-friendly queries; search several times if the request has several parts.
- Present retrieved results in a clear and organized manner.
- When nothing is found, say so and suggest alternative queries.`

// SourceReader resolves a chunk source to the full text of its document.
type SourceReader interface {
	Read(name string) (string, error)
}

// Retriever searches the index through a bounded tool loop and replaces the
// documents in scope with the full text of every source it saw.
type Retriever struct {
	model         llms.Model
	index         rag.VectorStore
	sources       SourceReader
	maxIterations int
	k             int
}

// NewRetriever creates a retriever. maxIterations <= 0 selects
// DefaultRetrieverMaxIterations; k <= 0 selects tool.DefaultSearchResults.
func NewRetriever(model llms.Model, index rag.VectorStore, sources SourceReader, maxIterations, k int) *Retriever {
	if maxIterations <= 0 {
		maxIterations = DefaultRetrieverMaxIterations
	}
	return &Retriever{
		model:         model,
		index:         index,
		sources:       sources,
		maxIterations: maxIterations,
		k:             k,
	}
}

func (r *Retriever) node(ctx context.Context, state ConversationState) (ConversationState, error) {
	search := tool.NewSearch(r.index, r.k)
	agent, err := prebuilt.CreateToolAgent(r.model, []tools.Tool{search},
		prebuilt.WithSystemPrompt(retrieverPrompt),
		prebuilt.WithMaxIterations(r.maxIterations),
	)
	if err != nil {
		return ConversationState{}, &StepError{Node: RetrieverNode, Err: err}
	}

	// no RecursionLimit: the loop draws from the enclosing run's budget
	result, err := agent.Invoke(ctx, prebuilt.ToolAgentState{Messages: toLLMMessages(state.Messages)})
	if err != nil {
		if isConvergence(err) {
			return ConversationState{}, err
		}
		return ConversationState{}, &StepError{Node: RetrieverNode, Err: err}
	}

	documents := []string{}
	for _, src := range search.Sources() {
		content, err := r.sources.Read(src)
		if err != nil {
			log.Warn("retriever: skipping source %s: %v", src, err)
			continue
		}
		documents = append(documents, content)
	}
	log.Info("retriever: %d documents in scope", len(documents))

	return ConversationState{
		Messages:  []Message{WorkerMessage(RetrieverNode, result.FinalAnswer())},
		Documents: documents,
	}, nil
}
