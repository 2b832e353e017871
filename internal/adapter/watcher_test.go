package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "debugir.dev/pkg/debugir/internal/model"
)

func TestFSNotifyWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.ll")
	other := filepath.Join(dir, "b.ll")
	writeTestFile(t, target, "declare void @f()\n")
	writeTestFile(t, other, "declare void @g()\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan []m.Path, 4)
	done := make(chan error, 1)

	go func() {
		done <- NewFSNotifyWatcher(time.Second).Watch(ctx, []m.Path{m.Path(target)}, 20*time.Millisecond, func(paths []m.Path) {
			changes <- paths
		})
	}()

	// Keep touching the files until the watcher reports; registration is asynchronous.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case got := <-changes:
			assert.Equal(t, []m.Path{m.Path(target)}, got)
			cancel()
			require.NoError(t, <-done)

			return
		case <-ticker.C:
			require.NoError(t, os.WriteFile(other, []byte("declare void @h()\n"), 0o644))
			require.NoError(t, os.WriteFile(target, []byte("declare void @f()\n"), 0o644))
		case <-ctx.Done():
			t.Fatal("timeout waiting for change notification")
		}
	}
}

func TestFSNotifyWatcher_Watch_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing", "a.ll")

	err := NewFSNotifyWatcher(0).Watch(context.Background(), []m.Path{m.Path(missing)}, 0, func([]m.Path) {})
	require.Error(t, err)
}

func TestNewFSNotifyWatcher_DefaultDebounce(t *testing.T) {
	assert.Equal(t, DefaultDebounce, NewFSNotifyWatcher(0).debounce)
	assert.Equal(t, time.Second, NewFSNotifyWatcher(time.Second).debounce)
}
