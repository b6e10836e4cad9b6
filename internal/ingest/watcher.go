package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"medtutor/internal/topics"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports which topics changed on disk. Bursts of events for the
// same topic are collapsed into one notification after the debounce delay.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dirs     map[string]string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher watches the folder of every catalog topic under root. Topics
// without a folder are skipped.
func NewWatcher(root string, catalog *topics.Catalog, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{watcher: fw, dirs: map[string]string{}, debounce: debounce, logger: logger}
	for _, t := range catalog.All() {
		dir := filepath.Clean(TopicDir(root, t))
		if err := fw.Add(dir); err != nil {
			logger.Warn("topic folder not watched", "topic", t.Key, "dir", dir, "err", err)
			continue
		}
		w.dirs[dir] = t.Key
	}
	if len(w.dirs) == 0 {
		fw.Close()
		return nil, fmt.Errorf("no topic folders found under %s", root)
	}
	return w, nil
}

// Run blocks until ctx is done, calling onChange with a topic key once its
// folder has been quiet for the debounce delay.
func (w *Watcher) Run(ctx context.Context, onChange func(topic string)) error {
	var (
		mu     sync.Mutex
		timers = map[string]*time.Timer{}
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !sourceExts[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			topic, ok := w.dirs[filepath.Dir(ev.Name)]
			if !ok {
				continue
			}
			mu.Lock()
			if t, exists := timers[topic]; exists {
				t.Reset(w.debounce)
			} else {
				timers[topic] = time.AfterFunc(w.debounce, func() {
					mu.Lock()
					delete(timers, topic)
					mu.Unlock()
					if ctx.Err() == nil {
						onChange(topic)
					}
				})
			}
			mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
