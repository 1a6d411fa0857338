package rag

import "context"

// Metadata keys set on indexed chunks.
const (
	MetadataSource     = "source"
	MetadataChunkIndex = "chunk_index"
	MetadataChunkTotal = "chunk_total"
)

// Document is a piece of text with metadata. Chunks stored in the index are
// Documents whose "source" metadata names the stored file they came from.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Source returns the "source" metadata of the document, or "".
func (d Document) Source() string {
	if d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata[MetadataSource].(string)
	return s
}

// VectorStore is the similarity-search index.
type VectorStore interface {
	// AddDocuments stores the documents and returns the ids assigned to them.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// SimilaritySearch returns at most k documents most similar to query.
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// Embedder turns text into vectors. It mirrors langchaingo's embeddings.Embedder
// so that either can be plugged into the in-memory store.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// DocumentLoader loads the textual content of a file.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}
