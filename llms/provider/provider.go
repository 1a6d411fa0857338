// Package provider builds the chat model and the embedder from configuration.
// Any OpenAI-compatible endpoint works through BaseURL.
package provider

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing LLM API key")

// Options selects the endpoint and models.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

func (o Options) openaiOptions() []openai.Option {
	opts := []openai.Option{openai.WithToken(o.APIKey)}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	if o.Model != "" {
		opts = append(opts, openai.WithModel(o.Model))
	}
	if o.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(o.EmbeddingModel))
	}
	return opts
}

// NewModel returns the chat model.
func NewModel(o Options) (llms.Model, error) {
	if o.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	model, err := openai.New(o.openaiOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return model, nil
}

// NewEmbedder returns an embedder using the same endpoint.
func NewEmbedder(o Options) (embeddings.Embedder, error) {
	if o.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := openai.New(o.openaiOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
