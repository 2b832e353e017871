package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	m "debugir.dev/pkg/debugir/internal/model"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher reports changes to a fixed set of files.
type FileWatcher interface {
	// Watch blocks until ctx is done, calling onChange with the changed
	// subset of paths after every burst of events settled for debounce.
	// A non-positive debounce selects the watcher's default.
	Watch(ctx context.Context, paths []m.Path, debounce time.Duration, onChange func([]m.Path)) error
}

// FSNotifyWatcher implements FileWatcher using fsnotify. Parent directories
// are watched so files replaced by rename are still seen.
type FSNotifyWatcher struct {
	debounce time.Duration
}

// NewFSNotifyWatcher creates a watcher with the given debounce interval.
func NewFSNotifyWatcher(debounce time.Duration) *FSNotifyWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &FSNotifyWatcher{debounce: debounce}
}

// Watch implements FileWatcher.
func (fw *FSNotifyWatcher) Watch(ctx context.Context, paths []m.Path, debounce time.Duration, onChange func([]m.Path)) error {
	if debounce <= 0 {
		debounce = fw.debounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]m.Path, len(paths))
	dirs := make(map[string]struct{})

	for _, p := range paths {
		abs, err := filepath.Abs(string(p))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}

		watched[abs] = p
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	pending := make(map[m.Path]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			p, ok := watched[ev.Name]
			if !ok {
				continue
			}

			slog.Debug("File changed", "path", p, "op", ev.Op.String())

			pending[p] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			slog.Error("Failed to watch files", "error", err)
		case <-timer.C:
			changed := make([]m.Path, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}

			sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
			clear(pending)

			if len(changed) > 0 {
				onChange(changed)
			}
		}
	}
}
