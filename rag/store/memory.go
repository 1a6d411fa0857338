package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/smallnest/insightgraph/rag"
)

// InMemoryVectorStore is a simple in-memory vector store implementation.
// It is safe for concurrent use.
type InMemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []rag.Document
	embeddings [][]float32
	embedder   rag.Embedder
}

// NewInMemoryVectorStore creates a new InMemoryVectorStore
func NewInMemoryVectorStore(embedder rag.Embedder) *InMemoryVectorStore {
	return &InMemoryVectorStore{
		embedder: embedder,
	}
}

// AddDocuments embeds and stores the documents, assigning ids to those without one.
func (s *InMemoryVectorStore) AddDocuments(ctx context.Context, docs []rag.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	ids := make([]string, len(docs))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		ids[i] = doc.ID
		s.documents = append(s.documents, doc)
		s.embeddings = append(s.embeddings, vectors[i])
	}
	return ids, nil
}

// SimilaritySearch returns the k documents with the highest cosine similarity to query.
func (s *InMemoryVectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]rag.Document, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type docScore struct {
		index int
		score float64
	}
	scores := make([]docScore, len(s.documents))
	for i, docEmb := range s.embeddings {
		scores[i] = docScore{index: i, score: cosineSimilarity32(queryEmbedding, docEmb)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	k = min(k, len(scores))
	results := make([]rag.Document, k)
	for i := 0; i < k; i++ {
		results[i] = s.documents[scores[i].index]
	}
	return results, nil
}

// Len returns the number of stored documents.
func (s *InMemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
