// Package watcher reloads the note service when the file store is edited
// by something other than this process.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tidenotes/internal/storage"
)

// Debounce is how long the watcher waits after the last event before checking.
const Debounce = 200 * time.Millisecond

// Detector reports whether the stored collection differs from what the
// process last read or wrote. storage.Adapter implements it.
type Detector interface {
	NotesChangedExternally() (bool, error)
}

// ReloadFunc re-reads the collection. It is called from the watcher goroutine.
type ReloadFunc func(ctx context.Context) error

// Watch watches the store directory until ctx is cancelled. Bursts of
// events on the notes file are debounced; the reload runs only when the
// content no longer matches our own last write.
func Watch(ctx context.Context, store *storage.FS, detector Detector, reload ReloadFunc, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Writes are tmp+rename, so the directory is watched rather than the file.
	if err := w.Add(store.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", store.Root()))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changed, err := detector.NotesChangedExternally()
			if err != nil {
				logger.Warn("watcher: check failed", slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			if err := reload(ctx); err != nil {
				logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: reloaded after external edit")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, isKey := store.KeyFor(ev.Name)
			if !isKey || key != storage.KeyNotes {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
