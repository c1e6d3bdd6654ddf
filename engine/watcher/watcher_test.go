package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) record(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func startWatcher(t *testing.T, path string, rec *recorder) (Watcher, <-chan error) {
	t.Helper()
	w, err := NewWatcher(path, rec.record, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w, done
}

func TestWatcherDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	rec := &recorder{}
	w, _ := startWatcher(t, path, rec)
	assert.Equal(t, path, w.Path())

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	assert.Eventually(t, func() bool {
		texts := rec.snapshot()
		return len(texts) == 1 && texts[0] == "v2"
	}, 2*time.Second, 10*time.Millisecond)

	// an identical save is dropped
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestWatcherFollowsAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec)

	tmp := filepath.Join(dir, ".shader.frag.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("v3"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	assert.Eventually(t, func() bool {
		texts := rec.snapshot()
		return len(texts) > 0 && texts[len(texts)-1] == "v3"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.frag"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatcherStopsOnContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Run(context.Background()), errClosed)
}

func TestNewWatcherMissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.frag"), nil)
	assert.Error(t, err)
}
