// Package watch maps data-directory file events to collection change
// notifications, so connected dashboards can refresh without polling.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Callback is invoked with the base filename of a changed collection.
type Callback func(collection string)

// Watch runs an fsnotify watcher on dataDir until ctx is cancelled and calls
// cb for every create, write, rename, or remove of a .json file. Staged temp
// files are skipped; the rename that lands them surfaces as a create event
// on the target file.
func Watch(ctx context.Context, dataDir string, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", dataDir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logger.Debug("watcher: collection changed",
				slog.String("file", name),
				slog.String("op", ev.Op.String()))
			if cb != nil {
				cb(name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
