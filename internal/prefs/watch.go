package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the reloaded document whenever the file changes on disk.
// It only works for stores on the OS filesystem and returns once the watcher
// is running; watching stops when ctx is canceled.
func (s *Store) Watch(ctx context.Context, fn func(Prefs)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}

	// Watch the directory: saves replace the file by rename.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.watchLoop(ctx, watcher, fn)
	slog.Debug("Watching preferences", "path", s.path)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn func(Prefs)) {
	defer watcher.Close()
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := s.Load()
			if err != nil {
				slog.Warn("Failed to reload preferences", "path", s.path, "error", err)
				continue
			}
			fn(p)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Preferences watcher error", "error", err)
		}
	}
}
