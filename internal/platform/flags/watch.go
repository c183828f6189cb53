package flags

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 500 * time.Millisecond

// Watcher calls reload after a watched file stops changing.
type Watcher struct {
	watcher *fsnotify.Watcher
	reload  func() error
	logger  *slog.Logger
}

// NewWatcher watches the existing files among paths. Missing paths are
// skipped.
func NewWatcher(paths []string, reload func() error, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %q: %w", p, err)
		}
	}
	return &Watcher{watcher: w, reload: reload, logger: logger}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					if err := w.reload(); err != nil {
						w.logger.Error("hot reload failed", "file", event.Name, "error", err)
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}
