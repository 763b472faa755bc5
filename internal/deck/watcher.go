package deck

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sellis/critterdex/internal/storage"
)

// Watch starts an fsnotify watcher on the directory containing the deck slot
// and reloads the store whenever the slot changes underneath it (e.g. the
// file was edited or replaced by another process). Reloads are debounced, and
// writes the store performed itself are ignored by comparing the on-disk
// payload checksum against the store's last persisted one.
//
// cb (if non-nil) is invoked after each externally-triggered reload.
//
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, store *Store, provider storage.Provider, logger *slog.Logger, cb func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	slotPath := provider.Path()
	if err := w.Add(filepath.Dir(slotPath)); err != nil {
		return err
	}

	logger.Info("deck watcher: started", slog.String("path", slotPath))

	// reloadTimer debounces bursts of events (atomic replace fires several).
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("deck watcher: stopped")
			return nil

		case <-reloadCh:
			reloadIfForeign(store, provider, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != slotPath {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("deck watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reloadIfForeign reloads the store when the slot content on disk differs
// from what the store itself last wrote.
func reloadIfForeign(store *Store, provider storage.Provider, logger *slog.Logger, cb func()) {
	raw, err := provider.Load()
	if err != nil {
		if os.IsNotExist(err) {
			// Slot removed externally: treat as an empty deck.
			if store.Count() > 0 {
				logger.Info("deck watcher: slot removed externally, reloading")
				store.Reload()
				if cb != nil {
					cb()
				}
			}
			return
		}
		logger.Warn("deck watcher: read failed", slog.String("error", err.Error()))
		return
	}

	if storage.Checksum(raw) == store.LastSavedChecksum() {
		return // our own write
	}

	logger.Info("deck watcher: external change detected, reloading")
	store.Reload()
	if cb != nil {
		cb()
	}
}
