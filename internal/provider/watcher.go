package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch follows file events under the configured paths and feeds
// catalog mutations until ctx is cancelled. Events are debounced so an
// install that touches a file several times produces one upsert.
// Blocks; run it in its own goroutine.
func (a *Apps) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range a.cfg.Paths {
		if err := w.Add(root); err != nil {
			a.logger.Warn("watch unavailable",
				slog.String("path", root),
				slog.String("error", err.Error()))
		}
	}

	debounce := a.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	// Pending paths accumulate until the debounce window closes, then
	// flush as catalog mutations.
	pending := map[string]struct{}{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			a.flush(pending)
			pending = map[string]struct{}{}
		}
	}
}

// flush applies one debounced batch of file events to the store.
func (a *Apps) flush(pending map[string]struct{}) {
	for path := range pending {
		// upsertPath re-stats the file, so it resolves create/remove
		// races within one window by what is actually on disk.
		if err := a.upsertPath(path); err != nil {
			a.logger.Warn("catalog update failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
}
