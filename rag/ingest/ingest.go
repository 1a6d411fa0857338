// Package ingest turns raw files into indexed chunks and overview fragments.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/prebuilt"
	"github.com/smallnest/insightgraph/rag"
	"github.com/smallnest/insightgraph/rag/docstore"
	"github.com/smallnest/insightgraph/rag/loader"
	"github.com/smallnest/insightgraph/rag/overview"
	"github.com/smallnest/insightgraph/rag/splitter"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"
)

// Extraction is the structured answer of the model for one file.
type Extraction struct {
	DataRows string `json:"data_rows"`
	Summary  string `json:"summary"`
}

// ExtractionFunction is the function the model must call to report an Extraction.
var ExtractionFunction = llms.FunctionDefinition{
	Name:        "document_extraction",
	Description: "Report the data rows extracted from the document and a short summary of it.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data_rows": map[string]any{
				"type":        "string",
				"description": "Extracted rows data from the document",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "A short summary about the file contents",
			},
		},
		"required": []string{"data_rows", "summary"},
	},
}

const extractionPrompt = `This file content contains some texts and a data table.
Extract the data in separate rows, where each row starts with the free texts and adds a description of data table row.
At the end, summarize file contents as short as possible. Return summary right away. No need for introductions.

For example:
"
    title

    data-header-1, data-header-2
    data-row-1-col-1, data-row-1-col-2
    data-row-2-col-1, data-row-2-col-2

    some remarks
"

Should be extracted into separate lines as:
"
extracted data:
    Title, remarks, explanation of data-row-1
    Title, remarks, explanation of data-row-2

summary:
    Information about data-header-1, data-header-2
"

Here are the contents:%s`

// FileResult is the outcome of ingesting one file of a batch.
type FileResult struct {
	Path string
	IDs  []string
	Err  error
}

// Pipeline ingests files into the document store, the index and the overview.
type Pipeline struct {
	docs     *docstore.Store
	index    rag.VectorStore
	overview *overview.Cache
	model    llms.Model
	splitter *splitter.Splitter

	rollbackOnParseFailure bool
	concurrency            int
	debounce               time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRollbackOnParseFailure removes the stored copy when loading or extraction
// fails.
// By default the copy stays, so the same file is reported as already indexed
// on the next attempt.
func WithRollbackOnParseFailure(rollback bool) Option {
	return func(p *Pipeline) {
		p.rollbackOnParseFailure = rollback
	}
}

// WithConcurrency sets how many files of a directory are ingested at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.concurrency = n
	}
}

// WithSplitter replaces the default 1000/200 splitter.
func WithSplitter(s *splitter.Splitter) Option {
	return func(p *Pipeline) {
		p.splitter = s
	}
}

// WithDebounce sets the quiet period Watch waits for before ingesting.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		p.debounce = d
	}
}

// New creates a Pipeline.
func New(docs *docstore.Store, index rag.VectorStore, ov *overview.Cache, model llms.Model, opts ...Option) (*Pipeline, error) {
	if docs == nil || index == nil || ov == nil || model == nil {
		return nil, errors.New("ingest: document store, index, overview and model are required")
	}

	p := &Pipeline{
		docs:        docs,
		index:       index,
		overview:    ov,
		model:       model,
		concurrency: 1,
		debounce:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.splitter == nil {
		s, err := splitter.New()
		if err != nil {
			return nil, err
		}
		p.splitter = s
	}
	if p.concurrency <= 0 {
		p.concurrency = 1
	}
	return p, nil
}

// Ingest stores, extracts, splits and indexes a single file and appends its
// summary to the overview. It returns the ids of the indexed chunks.
//
// The overview is not recomputed; call Recompute (or use IngestDirectory).
func (p *Pipeline) Ingest(ctx context.Context, path string) ([]string, error) {
	log.Info("ingesting %s", path)

	exists, err := p.docs.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &alreadyIndexedError{path: path}
	}

	stored, err := p.docs.Admit(path)
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return nil, &alreadyIndexedError{path: path}
		}
		return nil, fmt.Errorf("failed to store %s: %w", path, err)
	}

	content, err := p.load(ctx, stored)
	if err != nil {
		p.rollback(stored)
		return nil, &IngestError{Stage: StageLoad, Name: stored.Name, Err: err}
	}

	extraction, err := p.extract(ctx, content)
	if err != nil {
		p.rollback(stored)
		return nil, &IngestError{Stage: StageParse, Name: stored.Name, Err: err}
	}

	chunks := p.splitter.SplitDocuments([]rag.Document{{
		Content:  extraction.DataRows,
		Metadata: map[string]any{rag.MetadataSource: stored.Name},
	}})

	ids, err := p.index.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, &IngestError{Stage: StageIndex, Name: stored.Name, Err: err}
	}
	log.Info("indexed %s as %d chunks", stored.Name, len(ids))

	if err := p.overview.Append(extraction.Summary); err != nil {
		log.Error("failed to append summary of %s: %v", stored.Name, err)
	}
	return ids, nil
}

// rollback removes a stored copy whose loading or extraction failed, when the
// pipeline is configured to.
func (p *Pipeline) rollback(stored docstore.StoredDocument) {
	if !p.rollbackOnParseFailure {
		return
	}
	if err := p.docs.Remove(stored.Name); err != nil {
		log.Warn("failed to roll back %s: %v", stored.Name, err)
	}
}

func (p *Pipeline) load(ctx context.Context, stored docstore.StoredDocument) (string, error) {
	docs, err := loader.ForFile(stored.Path, loader.WithMetadata(map[string]any{
		rag.MetadataSource: stored.Name,
	})).Load(ctx)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, d := range docs {
		content.WriteString(d.Content)
	}
	return content.String(), nil
}

func (p *Pipeline) extract(ctx context.Context, content string) (Extraction, error) {
	var out Extraction
	err := prebuilt.GenerateStructured(ctx, p.model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(extractionPrompt, content)),
	}, ExtractionFunction, &out)
	if err != nil {
		return Extraction{}, err
	}
	if strings.TrimSpace(out.DataRows) == "" {
		return Extraction{}, errors.New("no data rows extracted")
	}
	return out, nil
}

// Recompute refreshes the overview from everything appended so far.
func (p *Pipeline) Recompute(ctx context.Context) error {
	return p.overview.Recompute(ctx)
}

// IngestDirectory ingests every regular file directly inside dir, then
// recomputes the overview exactly once. Every entry gets a FileResult in name
// order; entries that are not regular files (after following symlinks) carry
// ErrNotRegularFile. Failures of single files never stop the batch; the
// returned error is about the directory itself or the recompute.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	results := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = FileResult{Path: path}
			info, err := os.Stat(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			if !info.Mode().IsRegular() {
				log.Debug("skipping %s: %s", path, info.Mode().Type())
				results[i].Err = fmt.Errorf("skipped %s: %w", path, ErrNotRegularFile)
				return nil
			}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].IDs, results[i].Err = p.Ingest(ctx, path)
			if results[i].Err != nil {
				log.Warn("%v", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := p.overview.Recompute(ctx); err != nil {
		return results, err
	}
	return results, nil
}
