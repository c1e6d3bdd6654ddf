package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/watcher"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/window"
)

var (
	errNoWindow  = errors.New("engine has no window")
	errNoSession = errors.New("engine has no session")
)

// engine implements the Engine interface.
// The window thread handles input and edit-path calls; the render goroutine presents frames.
type engine struct {
	// mu guards the input snapshot shared by the window thread and the render goroutine.
	mu *sync.Mutex

	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window  window.Window
	session session.Session
	watcher watcher.Watcher
	logger  *slog.Logger

	inputs []session.ChannelInput
	keys   map[uint32]func()

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        int32         // 0 = unlimited
	title            string

	clock  *clock
	paused atomic.Bool

	// Snapshot written by the window thread each loop iteration.
	mouse         window.Mouse
	width, height int
	// pendingTitle is written by the render goroutine and applied on the window thread.
	pendingTitle string
	lastStatus   string
}

// Engine drives the preview: a window on the main thread, a render goroutine presenting the
// session's program every frame and an optional file watcher feeding source edits.
type Engine interface {
	// Window returns the preview window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Session returns the session being previewed.
	//
	// Returns:
	//   - session.Session: the session
	Session() session.Session

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// BindKey registers fn for a key press, replacing any existing binding.
	//
	// Parameters:
	//   - keyCode: the key code (see common.Key*)
	//   - fn: the function to run on the window thread, or nil to unbind
	BindKey(keyCode uint32, fn func())

	// SetPaused stops or resumes playback. While paused no frames are presented and iTime stands
	// still.
	//
	// Parameters:
	//   - paused: true to pause
	SetPaused(paused bool)

	// Paused reports whether playback is paused.
	Paused() bool

	// Run starts the render goroutine and the watcher, then runs the window message loop on the
	// calling thread. It returns when the window closes, ctx is cancelled, Quit is called or the
	// frame limit is reached.
	//
	// Parameters:
	//   - ctx: stops the engine when cancelled
	//
	// Returns:
	//   - error: if the engine has no window or session, or the watcher failed
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine with the provided options and binds the default keys:
// R recompiles, D resets the parameters to their defaults, P logs the parameters and Space
// toggles pause.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:          &sync.Mutex{},
		quitChannel: make(chan struct{}),
		logger:      slog.Default(),
		keys:        make(map[uint32]func()),
		title:       "shadertoy",
		clock:       newClock(time.Now()),
	}
	for _, opt := range options {
		opt(e)
	}

	e.keys[common.KeyR] = func() {
		if e.session != nil {
			e.session.OnExplicitRecompileRequested()
		}
	}
	e.keys[common.KeyD] = func() {
		if e.session != nil {
			e.session.OnResetToDefaultsRequested()
		}
	}
	e.keys[common.KeyP] = e.logParams
	e.keys[common.KeySpace] = func() { e.SetPaused(!e.Paused()) }

	if e.window != nil {
		e.width, e.height = e.window.Width(), e.window.Height()
		e.window.SetKeyDownCallback(e.handleKey)
		e.window.SetResizeCallback(func(width, height int) {
			e.mu.Lock()
			e.width, e.height = width, height
			e.mu.Unlock()
		})
		e.window.SetUpdateCallback(e.handleWindow)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Session() session.Session {
	return e.session
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) BindKey(keyCode uint32, fn func()) {
	if fn == nil {
		delete(e.keys, keyCode)
		return
	}
	e.keys[keyCode] = fn
}

func (e *engine) SetPaused(paused bool) {
	if e.paused.Swap(paused) == paused {
		return
	}
	e.clock.setPaused(time.Now(), paused)
	e.logger.Info("[Engine] playback", "paused", paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil {
		return errNoWindow
	}
	if e.session == nil {
		return errNoSession
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var watchErr error
	if e.watcher != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				watchErr = fmt.Errorf("failed to watch %s: %w", e.watcher.Path(), err)
				e.signalQuit()
			}
		}()
	}

	e.wg.Add(2)
	go e.handleRender(ctx)
	go func() {
		defer e.wg.Done()
		select {
		case <-ctx.Done():
			e.signalQuit()
		case <-e.quitChannel:
		}
	}()

	e.window.ProcessMessages()
	e.signalQuit()
	cancel()
	e.wg.Wait()
	return watchErr
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

// handleWindow runs on the window thread every message loop iteration. It snapshots the input
// state for the render goroutine and applies title changes.
func (e *engine) handleWindow() {
	if e.quitting() {
		e.window.Stop()
		return
	}

	mouse := e.window.Mouse()
	e.mu.Lock()
	e.mouse = mouse
	title := e.pendingTitle
	e.pendingTitle = ""
	e.mu.Unlock()

	if title != "" {
		e.window.SetTitle(title)
	}
}

// handleKey runs on the window thread. Bindings call edit-path session methods only.
func (e *engine) handleKey(keyCode uint32) {
	if fn, ok := e.keys[keyCode]; ok {
		fn()
	}
}

// handleRender presents one frame per iteration until quit. Recovers from panics to avoid
// crashing the process and signals quit on recovery.
func (e *engine) handleRender(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("[Engine] render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	var frame int32
	last := time.Now()
	for !e.quitting() {
		start := time.Now()
		if e.Paused() {
			time.Sleep(common.Coalesce(e.renderFrameLimit, 10*time.Millisecond))
			last = time.Now()
			continue
		}

		fc := e.frameContext(start, start.Sub(last), frame)
		last = start
		err := e.session.Present(ctx, fc, e.inputs)
		e.report(err)
		frame++

		if e.maxFrames > 0 && frame >= e.maxFrames {
			e.signalQuit()
			return
		}
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frameContext builds the frame inputs from the playback clock and the input snapshot.
func (e *engine) frameContext(now time.Time, dt time.Duration, frame int32) session.FrameContext {
	e.mu.Lock()
	mouse, width, height := e.mouse, e.width, e.height
	e.mu.Unlock()

	fc := session.FrameContext{
		Width:         width,
		Height:        height,
		Time:          float32(e.clock.elapsed(now).Seconds()),
		TimeDelta:     float32(dt.Seconds()),
		Frame:         frame,
		Date:          now,
		MousePosition: mouse.Position,
		MouseClick:    mouse.Click,
		MousePressed:  mouse.Pressed,
	}
	if dt > 0 {
		fc.FrameRate = float32(1 / dt.Seconds())
	}
	return fc
}

// report logs a changed render status and queues a title reflecting it.
func (e *engine) report(err error) {
	status := ""
	if err != nil {
		status = err.Error()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if status == e.lastStatus {
		return
	}
	e.lastStatus = status
	if err != nil {
		e.logger.Warn("[Engine] frame failed", "err", err)
		e.pendingTitle = e.title + " (error)"
		return
	}
	e.logger.Info("[Engine] frame ok")
	e.pendingTitle = e.title
}

// logParams logs the live parameters and the version state of the session.
func (e *engine) logParams() {
	if e.session == nil {
		return
	}
	st := e.session.State()
	e.logger.Info("[Engine] session", "source_version", st.SourceVersion, "layout_version", st.LayoutVersion,
		"compiled", st.Compiled, "update_pending", st.UpdatePending, "phase", e.session.Phase())
	for i, s := range e.session.SlotViews() {
		if !s.Live() {
			continue
		}
		e.logger.Info("[Engine] param", "slot", i, "name", s.Name, "type", s.Type, "value", s.Value,
			"default", s.Default, "min", s.Min, "max", s.Max)
	}
}
