package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/watcher"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWindow sets the preview window. Its callbacks are taken over by the engine.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithSession sets the session to preview. Its renderer must present to the window's surface.
//
// Parameters:
//   - s: the session
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSession(s session.Session) EngineBuilderOption {
	return func(e *engine) {
		e.session = s
	}
}

// WithWatcher runs w for the lifetime of the engine.
//
// Parameters:
//   - w: a watcher feeding source edits into the session
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatcher(w watcher.Watcher) EngineBuilderOption {
	return func(e *engine) {
		e.watcher = w
	}
}

// WithChannelInputs sets the channel images presented with every frame.
//
// Parameters:
//   - inputs: the channel images, indexed by channel
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithChannelInputs(inputs []session.ChannelInput) EngineBuilderOption {
	return func(e *engine) {
		e.inputs = inputs
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames quits the engine after n presented frames. 0 runs until the window closes.
//
// Parameters:
//   - n: the frame count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n int) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = int32(max(n, 0))
	}
}

// WithTitle sets the window title the engine restores after an error clears.
//
// Parameters:
//   - title: the title
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = title
	}
}

// WithLogger sets the logger for playback and render status messages.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
