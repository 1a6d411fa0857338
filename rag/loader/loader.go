// Package loader reads stored files into rag.Documents.
package loader

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/smallnest/insightgraph/rag"
)

// Option configures a loader.
type Option func(*fileLoader)

// WithMetadata sets additional metadata for loaded documents
func WithMetadata(metadata map[string]any) Option {
	return func(l *fileLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

type fileLoader struct {
	filePath string
	metadata map[string]any
	extract  func(raw []byte) (string, error)
}

// NewTextLoader returns a loader producing the file content verbatim.
func NewTextLoader(filePath string, opts ...Option) rag.DocumentLoader {
	return newFileLoader(filePath, "text", func(raw []byte) (string, error) {
		return string(raw), nil
	}, opts)
}

// NewHTMLLoader returns a loader producing the visible text of an HTML file.
// Script and style elements are dropped and blank lines collapsed.
func NewHTMLLoader(filePath string, opts ...Option) rag.DocumentLoader {
	return newFileLoader(filePath, "html", htmlText, opts)
}

// ForFile picks a loader by file extension: .html and .htm go through the HTML
// loader, everything else is read as text.
func ForFile(filePath string, opts ...Option) rag.DocumentLoader {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".html", ".htm":
		return NewHTMLLoader(filePath, opts...)
	default:
		return NewTextLoader(filePath, opts...)
	}
}

func newFileLoader(filePath, kind string, extract func([]byte) (string, error), opts []Option) *fileLoader {
	l := &fileLoader{
		filePath: filePath,
		metadata: map[string]any{
			rag.MetadataSource: filePath,
			"type":             kind,
		},
		extract: extract,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads the file as a single document.
func (l *fileLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	content, err := l.extract(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", l.filePath, err)
	}

	metadata := make(map[string]any, len(l.metadata))
	maps.Copy(metadata, l.metadata)

	return []rag.Document{{
		Content:  content,
		Metadata: metadata,
	}}, nil
}

func htmlText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var lines []string
	for line := range strings.SplitSeq(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
