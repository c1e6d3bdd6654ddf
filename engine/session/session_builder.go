package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/state"
)

const (
	defaultCapacity   = 16
	defaultChannels   = 4
	defaultProgramKey = "shadertoy"
)

// SessionBuilderOption is a functional option applied to a session during construction via NewSession.
type SessionBuilderOption func(s *session)

// WithCapacity sets the number of parameter slots N.
//
// Parameters:
//   - n: the slot capacity, must be positive
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithCapacity(n int) SessionBuilderOption {
	return func(s *session) {
		s.capacity = n
	}
}

// WithChannels sets the number of input channels M.
//
// Parameters:
//   - m: the channel count, must be positive
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithChannels(m int) SessionBuilderOption {
	return func(s *session) {
		s.channels = m
	}
}

// WithRenderer sets the renderer that compiles and runs programs. The session releases it on Close.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) SessionBuilderOption {
	return func(s *session) {
		s.renderer = r
	}
}

// WithProgramKey sets the key programs are cached under in the renderer.
//
// Parameters:
//   - key: the pipeline cache key
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithProgramKey(key string) SessionBuilderOption {
	return func(s *session) {
		if key != "" {
			s.programKey = key
		}
	}
}

// WithLogger sets the logger for compile and reconciliation diagnostics.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SessionBuilderOption {
	return func(s *session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderWorkers sets the maximum number of workers serving RenderAsync. Defaults to 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithRenderWorkers(n int) SessionBuilderOption {
	return func(s *session) {
		s.renderWorkers = n
	}
}

// WithParamsUpdatedHandler sets the function raised after a compile published a schema while a
// sync was pending. It runs on the rendering goroutine with no session lock held. The default
// handler calls OnAutoSyncRequested, as a host does when it re-runs the parameter update command;
// pass nil to leave reconciliation to the caller.
//
// Parameters:
//   - fn: the handler
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithParamsUpdatedHandler(fn func()) SessionBuilderOption {
	return func(s *session) {
		s.onParamsUpdated = fn
		s.customHandler = true
	}
}

// WithProfiler records frames and compiles in p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SessionBuilderOption {
	return func(s *session) {
		s.profiler = p
	}
}

// WithSource sets the initial shader text.
//
// Parameters:
//   - text: the shader source
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithSource(text string) SessionBuilderOption {
	return func(s *session) {
		s.source = &text
	}
}

// NewSession creates a Session. It panics when the capacity or the channel count is not positive.
//
// Parameters:
//   - options: variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the new session
func NewSession(options ...SessionBuilderOption) Session {
	s := &session{
		mu:            &sync.Mutex{},
		renderMu:      &sync.Mutex{},
		poolMu:        &sync.Mutex{},
		capacity:      defaultCapacity,
		channels:      defaultChannels,
		programKey:    defaultProgramKey,
		logger:        slog.Default(),
		renderWorkers: 1,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.capacity <= 0 {
		panic(fmt.Sprintf("session: invalid capacity: %v", s.capacity))
	}
	if s.channels <= 0 {
		panic(fmt.Sprintf("session: invalid channel count: %v", s.channels))
	}

	s.slots = slot.NewPool(slot.WithCapacity(s.capacity))
	s.inputs = slot.NewInputPool(slot.WithChannels(s.channels))
	if s.source != nil {
		s.controller = state.NewController(state.WithSource(*s.source))
	} else {
		s.controller = state.NewController()
	}
	if !s.customHandler {
		s.onParamsUpdated = func() { s.OnAutoSyncRequested() }
	}
	s.pool = worker.NewDynamicWorkerPool(s.renderWorkers, 256, 1*time.Second)
	return s
}
