package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var errClosed = errors.New("watcher is closed")

type watcher struct {
	mu *sync.Mutex

	path     string
	debounce time.Duration
	logger   *slog.Logger
	onChange func(text string)

	fs     *fsnotify.Watcher
	last   string
	closed bool
}

// Watcher reloads a shader file when it changes on disk and hands the new text to a callback.
//
// The parent directory is watched rather than the file, so editors that save by writing a
// temporary file and renaming it over the original are followed. Bursts of events are collapsed
// into one reload after the debounce delay, and a reload whose text equals the previous one is
// dropped.
type Watcher interface {
	// Run delivers changes until ctx is done or Close is called. The callback runs on the
	// goroutine calling Run.
	//
	// Parameters:
	//   - ctx: stops the watch when done
	//
	// Returns:
	//   - error: ctx.Err() when the context ended, nil after Close, or a watch error
	Run(ctx context.Context) error

	// Path returns the watched file.
	Path() string

	// Close stops the watch and releases the underlying notifier.
	//
	// Returns:
	//   - error: error if the notifier fails to close
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher starts watching path. The current contents count as already delivered.
//
// Parameters:
//   - path: the shader file
//   - onChange: called with the new text after each change
//   - options: functional options for the watcher
//
// Returns:
//   - Watcher: the watcher, ready to Run
//   - error: error if the file cannot be read or its directory cannot be watched
func NewWatcher(path string, onChange func(text string), options ...WatcherBuilderOption) (Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w := &watcher{
		mu:       &sync.Mutex{},
		path:     abs,
		debounce: 100 * time.Millisecond,
		logger:   slog.Default(),
		onChange: onChange,
	}
	for _, opt := range options {
		opt(w)
	}

	text, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", abs, err)
	}
	w.last = string(text)

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return w, nil
}

func (w *watcher) Path() string {
	return w.path
}

func (w *watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errClosed
	}
	events, errs := w.fs.Events, w.fs.Errors
	w.mu.Unlock()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("[Watcher] watch error", "path", w.path, "err", err)
		case <-timer.C:
			w.reload()
		}
	}
}

// reload reads the file and delivers it when the text changed.
func (w *watcher) reload() {
	text, err := os.ReadFile(w.path)
	if err != nil {
		// a rename in progress; the create event that follows triggers another reload
		w.logger.Debug("[Watcher] failed to read shader", "path", w.path, "err", err)
		return
	}
	if string(text) == w.last {
		return
	}
	w.last = string(text)
	w.logger.Info("[Watcher] shader changed", "path", w.path, "bytes", len(text))
	if w.onChange != nil {
		w.onChange(w.last)
	}
}

func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.fs.Close()
}
