// Package overview maintains the rolling, human-readable summary of everything
// ingested so far.
//
// Writers are serialized by a mutex within the process and, on unix, by an
// advisory flock on "<path>.lock" across processes, so a watcher and a
// one-off insert sharing the file never lose a fragment.
package overview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smallnest/insightgraph/log"
	"github.com/tmc/langchaingo/llms"
)

// EmptyOverview is what Read returns when nothing has been summarized yet.
const EmptyOverview = "Knowledge base currently is empty"

const recomputePrompt = `Make a summary about the text. No introductions.
Just start with "Data about..." and keep it short.

Add few example questions on what can be asked about this text.
Here are the contents: %s`

// Cache owns the overview file. Every operation holds the same mutex for its
// whole read-modify-replace cycle; Append and Recompute also hold the file lock.
type Cache struct {
	path  string
	model llms.Model
	mu    sync.Mutex
}

// New returns a cache backed by the file at path, created empty if missing.
func New(path string, model llms.Model) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create overview dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview %s: %w", path, err)
	}
	f.Close()

	return &Cache{path: path, model: model}, nil
}

func (c *Cache) lockPath() string {
	return c.path + ".lock"
}

// Path returns the overview file path.
func (c *Cache) Path() string {
	return c.path
}

// Append adds a fragment followed by a newline. No synthesis happens here.
func (c *Cache) Append(fragment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	unlock, err := c.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open overview: %w", err)
	}
	if _, err := f.WriteString(strings.TrimRight(fragment, "\n") + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to overview: %w", err)
	}
	return f.Close()
}

// Recompute asks the model to condense the whole overview and replaces the file
// with its answer, newline terminated so later fragments start on their own
// line. On any failure the file is left as it was. An empty overview is left
// alone without calling the model.
func (c *Cache) Recompute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	unlock, err := c.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	current, err := c.read()
	if err != nil {
		return err
	}
	if strings.TrimSpace(current) == "" {
		log.Debug("overview: nothing to recompute")
		return nil
	}
	if c.model == nil {
		return errors.New("overview: no model configured")
	}

	summary, err := llms.GenerateFromSinglePrompt(ctx, c.model, fmt.Sprintf(recomputePrompt, current))
	if err != nil {
		return fmt.Errorf("failed to recompute overview: %w", err)
	}

	return c.replace(strings.TrimRight(summary, "\n") + "\n")
}

// Read returns the overview, or EmptyOverview when there is none.
func (c *Cache) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, err := c.read()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return EmptyOverview, nil
	}
	return content, nil
}

func (c *Cache) read() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read overview: %w", err)
	}
	return string(data), nil
}

// replace writes content to a temp file next to the overview and renames it over.
func (c *Cache) replace(content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".overview-*")
	if err != nil {
		return fmt.Errorf("failed to create temp overview: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp overview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace overview: %w", err)
	}
	return nil
}
