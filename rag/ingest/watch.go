package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallnest/insightgraph/log"
)

// Watch ingests files created in, written to or moved into dir. Events are
// collected until dir has been quiet for the debounce period; the collected
// files are then ingested one by one and, if any succeeded, the overview is
// recomputed once. onResult, if not nil, is called for every file.
//
// Watch blocks until ctx is cancelled and then returns nil.
func (p *Pipeline) Watch(ctx context.Context, dir string, onResult func(FileResult)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Info("watching %s for new documents", dir)

	pending := make(map[string]struct{})
	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			pending[event.Name] = struct{}{}
			quiet = time.After(p.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error: %v", err)
		case <-quiet:
			quiet = nil
			batch := pending
			pending = make(map[string]struct{})
			p.flush(ctx, batch, onResult)
		}
	}
}

func (p *Pipeline) flush(ctx context.Context, batch map[string]struct{}, onResult func(FileResult)) {
	paths := make([]string, 0, len(batch))
	for path := range batch {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	ingested := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		res := FileResult{Path: path}
		res.IDs, res.Err = p.Ingest(ctx, path)
		if res.Err != nil {
			log.Warn("%v", res.Err)
		} else {
			ingested++
		}
		if onResult != nil {
			onResult(res)
		}
	}

	if ingested > 0 {
		if err := p.overview.Recompute(ctx); err != nil {
			log.Error("failed to recompute overview: %v", err)
		}
	}
}
