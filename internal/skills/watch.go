package skills

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog whenever the skills tree changes. Events are
// debounced so a burst of writes triggers one rescan. Blocks until ctx ends.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addAll := func() {
		if err := watcher.Add(c.dir); err != nil {
			return
		}
		entries, _ := os.ReadDir(c.dir)
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(c.dir, e.Name()))
			}
		}
	}
	addAll()

	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			slog.Info("skills: change detected, reloading", "dir", c.dir)
			c.Reload()
			addAll() // pick up new subdirectories
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("skills: watcher error", "error", err)
		}
	}
}
