package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/nfrund/gymhub/internal/domain"
)

// WatchDirectoryFile reloads d whenever path changes on disk, until ctx is
// canceled. A file that fails to parse leaves the previous content in place.
// onChange, when set, receives the affiliations each reload dropped or moved.
func WatchDirectoryFile(ctx context.Context, d *Directory, path string, logger *slog.Logger, onChange func([]domain.Affiliation)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the parent so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	fs := afero.NewOsFs()
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				affs, err := ReadDirectoryFile(fs, path)
				if err != nil {
					logger.Warn("Keeping previous directory, reload failed", "path", path, "error", err)
					continue
				}
				changed := d.Replace(affs)
				logger.Info("Directory reloaded", "path", path, "affiliations", len(affs), "changed", len(changed))
				if onChange != nil && len(changed) > 0 {
					onChange(changed)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("Directory watcher error", "error", err)
			}
		}
	}()
	return nil
}
