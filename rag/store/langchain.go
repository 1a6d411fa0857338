package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/insightgraph/rag"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pgvector"
)

// DefaultCollection is the pgvector collection chunks are written to.
const DefaultCollection = "auto_insurance"

// LangChainVectorStore adapts a langchaingo vectorstores.VectorStore to rag.VectorStore.
type LangChainVectorStore struct {
	store vectorstores.VectorStore
	close func()
}

// NewLangChainVectorStore creates a new adapter for langchaingo vector stores
func NewLangChainVectorStore(store vectorstores.VectorStore) *LangChainVectorStore {
	return &LangChainVectorStore{
		store: store,
	}
}

// NewPGVectorStore connects to Postgres and returns a pgvector backed store
// writing to collection. Close releases the connection pool.
func NewPGVectorStore(ctx context.Context, connString string, embedder embeddings.Embedder, collection string) (*LangChainVectorStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pg, err := pgvector.New(ctx,
		pgvector.WithConn(pool),
		pgvector.WithEmbedder(embedder),
		pgvector.WithCollectionName(collection),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open pgvector store: %w", err)
	}

	return &LangChainVectorStore{
		store: pg,
		close: pool.Close,
	}, nil
}

// AddDocuments adds documents to the vector store
func (l *LangChainVectorStore) AddDocuments(ctx context.Context, docs []rag.Document) ([]string, error) {
	schemaDocs := make([]schema.Document, len(docs))
	for i, doc := range docs {
		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    doc.Metadata,
		}
	}
	return l.store.AddDocuments(ctx, schemaDocs)
}

// SimilaritySearch performs similarity search
func (l *LangChainVectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]rag.Document, error) {
	docs, err := l.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, err
	}

	result := make([]rag.Document, len(docs))
	for i, d := range docs {
		result[i] = rag.Document{
			Content:  d.PageContent,
			Metadata: d.Metadata,
		}
	}
	return result, nil
}

// Close releases resources held by the store.
func (l *LangChainVectorStore) Close() {
	if l.close != nil {
		l.close()
	}
}
