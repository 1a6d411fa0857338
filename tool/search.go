package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/rag"
)

// DefaultSearchResults is how many chunks a search returns.
const DefaultSearchResults = 4

// Search queries the similarity index and remembers the source of every chunk
// it returned. Create one per retrieval so Sources reflects that run only.
type Search struct {
	store rag.VectorStore
	k     int

	mu      sync.Mutex
	sources []string
	seen    map[string]bool
}

// NewSearch creates a Search tool returning k chunks per query.
func NewSearch(store rag.VectorStore, k int) *Search {
	if k <= 0 {
		k = DefaultSearchResults
	}
	return &Search{
		store: store,
		k:     k,
		seen:  make(map[string]bool),
	}
}

// Name returns the name of the tool.
func (s *Search) Name() string {
	return "search_documents"
}

// Description returns the description of the tool.
func (s *Search) Description() string {
	return "Search the document database by semantic similarity. " +
		"Input should be a search query describing the data you need."
}

// Call runs the query and returns the matching chunks tagged with their source.
func (s *Search) Call(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	docs, err := s.store.SimilaritySearch(ctx, query, s.k)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	log.Debug("search %q returned %d chunks", query, len(docs))

	if len(docs) == 0 {
		return "No matching documents found.", nil
	}

	var b strings.Builder
	s.mu.Lock()
	for i, d := range docs {
		src := d.Source()
		if src != "" && !s.seen[src] {
			s.seen[src] = true
			s.sources = append(s.sources, src)
		}
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[source: %s]\n%s", src, d.Content)
	}
	s.mu.Unlock()

	return b.String(), nil
}

// Sources returns the distinct chunk sources seen so far, in first-seen order.
func (s *Search) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}
