package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/harvest/internal/watcher"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "failed to write %s", path)
}

func startWatcher(t *testing.T, cfg watcher.Config) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })
	require.NoError(t, w.Start(), "failed to start watcher")
	return w
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "start\n")

	// 10 writes 5ms apart fall well inside a 150ms debounce.
	w := startWatcher(t, watcher.Config{Paths: []string{logPath}, Debounce: 150 * time.Millisecond})

	for i := 0; i < 10; i++ {
		writeFile(t, logPath, fmt.Sprintf("line %d\n", i))
		time.Sleep(5 * time.Millisecond)
	}

	// Late file system events on slow machines may add a second event.
	var count int
	deadline := time.After(600 * time.Millisecond)
countLoop:
	for {
		select {
		case evt := <-w.Events():
			require.Equal(t, logPath, evt.Path)
			count++
		case <-deadline:
			break countLoop
		}
	}

	require.GreaterOrEqual(t, count, 1, "expected at least one event")
	require.LessOrEqual(t, count, 3, "expected debouncing to coalesce writes (got %d events for 10 writes)", count)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	otherPath := filepath.Join(dir, "other.txt")
	writeFile(t, logPath, "log")
	writeFile(t, otherPath, "initial")

	w := startWatcher(t, watcher.Config{Paths: []string{logPath}, Debounce: 50 * time.Millisecond})

	writeFile(t, otherPath, "other content")

	select {
	case evt := <-w.Events():
		require.Fail(t, "unexpected event", "got event for %s", evt.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "later.log")

	w := startWatcher(t, watcher.Config{Paths: []string{logPath}, Debounce: 50 * time.Millisecond})

	writeFile(t, logPath, "created")

	select {
	case evt := <-w.Events():
		require.Equal(t, logPath, evt.Path)
		assert.False(t, evt.At.IsZero())
	case <-time.After(time.Second):
		require.Fail(t, "expected an event for a newly created file")
	}
}

func TestWatcher_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "sub", "b.log")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, first, "a")
	writeFile(t, second, "b")

	w := startWatcher(t, watcher.Config{Paths: []string{first, second}, Debounce: 50 * time.Millisecond})

	writeFile(t, first, "a1")
	writeFile(t, second, "b1")

	seen := make(map[string]bool)
	deadline := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case evt := <-w.Events():
			seen[evt.Path] = true
		case <-deadline:
			require.Fail(t, "timed out", "saw only %v", seen)
		}
	}
	assert.True(t, seen[first])
	assert.True(t, seen[second])
}

func TestWatcher_SeparateBursts(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "test")

	w := startWatcher(t, watcher.Config{Paths: []string{logPath}, Debounce: 50 * time.Millisecond})

	for i := 1; i <= 2; i++ {
		writeFile(t, logPath, fmt.Sprintf("test%d", i))
		select {
		case evt := <-w.Events():
			require.Equal(t, logPath, evt.Path)
		case <-time.After(500 * time.Millisecond):
			require.Fail(t, "expected an event", "write %d", i)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	writeFile(t, logPath, "test")

	w, err := watcher.New(watcher.DefaultConfig(logPath))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.ErrorIs(t, w.Start(), watcher.ErrAlreadyStarted)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Stop() timed out - possible deadlock")
	}

	_, open := <-w.Events()
	assert.False(t, open, "events channel is closed after Stop")
	assert.NoError(t, w.Stop(), "second Stop is a no-op")
}

func TestNew_Errors(t *testing.T) {
	_, err := watcher.New(watcher.Config{})
	assert.ErrorIs(t, err, watcher.ErrNoPaths)

	_, err = watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing", "x.log")))
	assert.Error(t, err, "parent directory must exist")
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("a.log", "b.log")
	assert.Equal(t, []string{"a.log", "b.log"}, cfg.Paths)
	assert.Equal(t, watcher.DefaultDebounce, cfg.Debounce)
}
