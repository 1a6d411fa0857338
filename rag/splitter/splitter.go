// Package splitter cuts text into fixed-size, overlapping windows.
//
// Sizes are counted in runes. With a window of w and an overlap of o, chunk i
// starts at rune i*(w-o); every chunk except possibly the last is exactly w runes
// long.
package splitter

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/smallnest/insightgraph/rag"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var (
	ErrInvalidChunkSize    = errors.New("chunk size must be positive")
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be non-negative and smaller than the chunk size")
)

// Splitter splits text into chunks of ChunkSize runes overlapping by ChunkOverlap.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the window size in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets how many runes neighbouring chunks share.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.chunkOverlap = overlap
	}
}

// New creates a Splitter, 1000/200 unless overridden.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, s.chunkSize)
	}
	if s.chunkOverlap < 0 || s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, size %d", ErrInvalidChunkOverlap, s.chunkOverlap, s.chunkSize)
	}
	return s, nil
}

// ChunkSize returns the window size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split returns the chunks of text. Empty text yields no chunks.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.chunkOverlap
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+s.chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Join reverses Split: every chunk after the first loses its leading overlap.
func (s *Splitter) Join(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		r := []rune(c)
		if len(r) <= s.chunkOverlap {
			continue
		}
		b.WriteString(string(r[s.chunkOverlap:]))
	}
	return b.String()
}

// SplitDocuments splits each document and tags the chunks with a copy of the
// document metadata plus chunk_index and chunk_total.
func (s *Splitter) SplitDocuments(documents []rag.Document) []rag.Document {
	var result []rag.Document

	for _, doc := range documents {
		chunks := s.Split(doc.Content)
		for i, chunk := range chunks {
			newDoc := rag.Document{
				Content:  chunk,
				Metadata: make(map[string]any, len(doc.Metadata)+2),
			}
			maps.Copy(newDoc.Metadata, doc.Metadata)
			newDoc.Metadata[rag.MetadataChunkIndex] = i
			newDoc.Metadata[rag.MetadataChunkTotal] = len(chunks)

			result = append(result, newDoc)
		}
	}

	return result
}
