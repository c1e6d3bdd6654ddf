package watcher

import (
	"log/slog"
	"time"
)

// WatcherBuilderOption is a functional option for configuring a watcher.
type WatcherBuilderOption func(w *watcher)

// WithDebounce sets the delay between the last file event of a burst and the reload.
//
// Parameters:
//   - d: the debounce delay, ignored when not positive
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for reload diagnostics.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}
