package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/reconciler"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/state"
)

var (
	errNoRenderer   = errors.New("session has no renderer")
	errNoProgram    = errors.New("no program has compiled yet")
	errUnknownParam = errors.New("no live parameter with that name")
	errFieldValue   = errors.New("value does not fit the field")
	errFrameSize    = errors.New("frame size must be positive")
	errClosed       = errors.New("session is closed")
)

type session struct {
	// mu guards program.
	mu *sync.Mutex
	// renderMu serializes the render path: compile, publish and run.
	renderMu *sync.Mutex
	// poolMu guards both pools. Holding it is what makes reconciliation single-flight.
	poolMu *sync.Mutex

	controller state.Controller
	slots      slot.Pool
	inputs     slot.InputPool

	capacity int
	channels int

	renderer   renderer.Renderer
	programKey string
	program    pipeline.Pipeline

	logger          *slog.Logger
	profiler        *profiler.Profiler
	onParamsUpdated func()
	customHandler   bool
	source          *string

	renderWorkers int
	pool          worker.DynamicWorkerPool
	taskID        atomic.Int64
	closed        atomic.Bool
}

// Session ties one shader source to its slot pools, its version controller and a renderer.
//
// Edit-path methods (the On* entry points, setters and views) never wait on a compile or a
// render; they take the controller lock or the pool lock for a few field writes only.
// Render-path methods compile when the source changed, publish the discovered schema and run
// the last good program. A source that failed is not compiled again until it is edited.
type Session interface {
	// OnShaderTextChanged stores new shader text and requests a recompile.
	//
	// Parameters:
	//   - text: the shader source
	//
	// Returns:
	//   - uint64: the new source version
	OnShaderTextChanged(text string) uint64

	// OnExplicitRecompileRequested requests a recompile of the current text.
	//
	// Returns:
	//   - uint64: the new source version
	OnExplicitRecompileRequested() uint64

	// OnAutoSyncRequested requests the discovered parameters to be pushed into the slots. The first
	// call requests a recompile; a call made after that compile published its schema reconciles
	// the pools immediately.
	//
	// Returns:
	//   - state.SyncAction: the action taken
	OnAutoSyncRequested() state.SyncAction

	// OnUserEditedDiscoveredField writes one field of slot i (or channel i for input fields) from
	// the host side. Edits of the count, a name or a type mark the layout as changed.
	//
	// Parameters:
	//   - i: the slot or channel index, ignored for pool-wide fields
	//   - field: the edited field
	//   - value: the new value: param.UniformType, string, param.Value, int, bool, param.BBox,
	//     param.FilterMode or param.WrapMode depending on field
	//
	// Returns:
	//   - error: if i is out of range or value does not fit field
	OnUserEditedDiscoveredField(i int, field slot.Field, value any) error

	// OnResetToDefaultsRequested sets the value of every live slot to its default.
	OnResetToDefaultsRequested()

	// SetSlotValue sets the current value of slot i.
	//
	// Parameters:
	//   - i: the slot index
	//   - v: the value, of the slot's type
	//
	// Returns:
	//   - error: if i is out of range or v has the wrong type
	SetSlotValue(i int, v param.Value) error

	// SetSlotValueByName sets the current value of the live slot named name.
	//
	// Parameters:
	//   - name: the uniform name
	//   - v: the value, of the slot's type
	//
	// Returns:
	//   - error: if no live slot has that name or v has the wrong type
	SetSlotValueByName(name string, v param.Value) error

	// SlotView returns a snapshot of slot i.
	SlotView(i int) (slot.Snapshot, error)

	// SlotViews returns a snapshot of every slot.
	SlotViews() []slot.Snapshot

	// InputView returns a snapshot of channel i.
	InputView(i int) (slot.InputSnapshot, error)

	// Visibility projects the visibility of every slot and channel.
	Visibility() slot.Projection

	// BBox returns the reconciled bounding box selection.
	BBox() param.BBox

	// State returns the version counters and flags.
	State() state.VersionState

	// Phase returns the coarse state of the controller.
	Phase() state.Phase

	// LastError returns the parse or compile error of the current source, or nil.
	LastError() error

	// Compile brings the program up to date with the source without rendering, then raises
	// params-updated when a schema was published for a pending sync.
	//
	// Parameters:
	//   - ctx: cancels the retry loop between compiles
	//
	// Returns:
	//   - error: the parse or compile error of the current source
	Compile(ctx context.Context) error

	// Render brings the program up to date and renders one frame offscreen. When the current
	// source failed, the last good program renders the frame and the failure is returned with
	// the image.
	//
	// Parameters:
	//   - ctx: cancels the render before the GPU is invoked
	//   - frame: the frame context
	//   - inputs: the channel images, indexed by channel
	//
	// Returns:
	//   - image.Image: the rendered frame, or nil when no program ever compiled
	//   - error: the compile error of the current source or a render error
	Render(ctx context.Context, frame FrameContext, inputs []ChannelInput) (image.Image, error)

	// RenderAsync runs Render on the session's worker pool.
	//
	// Parameters:
	//   - ctx: passed to Render
	//   - frame: the frame context
	//   - inputs: the channel images
	//
	// Returns:
	//   - <-chan RenderResult: receives exactly one result
	RenderAsync(ctx context.Context, frame FrameContext, inputs []ChannelInput) <-chan RenderResult

	// Present is Render onto the renderer's presentation surface.
	//
	// Parameters:
	//   - ctx: cancels the render before the GPU is invoked
	//   - frame: the frame context, sized like the surface
	//   - inputs: the channel images
	//
	// Returns:
	//   - error: the compile error of the current source or a presentation error
	Present(ctx context.Context, frame FrameContext, inputs []ChannelInput) error

	// Close stops the worker pool and releases the renderer.
	Close()
}

var _ Session = &session{}

func (s *session) OnShaderTextChanged(text string) uint64 {
	v := s.controller.SetSource(text)
	s.logger.Debug("[Session] shader text changed", "source_version", v)
	return v
}

func (s *session) OnExplicitRecompileRequested() uint64 {
	v := s.controller.RequestRecompile()
	s.logger.Debug("[Session] recompile requested", "source_version", v)
	return v
}

func (s *session) OnAutoSyncRequested() state.SyncAction {
	action := s.controller.RequestAutoSync()
	if action == state.SyncReconcile {
		s.reconcilePending()
	}
	s.logger.Debug("[Session] auto sync", "action", action, "source_version", s.controller.State().SourceVersion)
	return action
}

// reconcilePending writes the published schema into the pools when a reconciliation is owed.
func (s *session) reconcilePending() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	d, ok := s.controller.TakePending()
	if !ok {
		return
	}
	res, err := reconciler.Reconcile(d, s.slots, s.inputs)
	if err != nil {
		s.logger.Error("[Session] reconcile failed", "err", err)
		return
	}
	if res.Dropped > 0 || res.DroppedInputs > 0 {
		s.logger.Debug("[Session] discovered entries past capacity dropped", "params", res.Dropped, "inputs", res.DroppedInputs)
	}
	s.logger.Debug("[Session] reconciled", "writes", res.Writes, "input_writes", res.InputWrites, "type_changes", res.TypeChanges)
}

func (s *session) OnUserEditedDiscoveredField(i int, field slot.Field, value any) error {
	if err := s.writeField(i, field, value); err != nil {
		return fmt.Errorf("failed to edit %s of slot %d: %w", field, i, err)
	}
	if field.Structural() {
		v := s.controller.MarkLayoutChanged()
		s.logger.Debug("[Session] layout changed", "field", field, "slot", i, "layout_version", v)
	}
	return nil
}

func (s *session) writeField(i int, field slot.Field, value any) error {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	switch field {
	case slot.FieldCount:
		if n, ok := value.(int); ok {
			return s.slots.SetCount(n)
		}
	case slot.FieldType:
		if t, ok := value.(param.UniformType); ok {
			return s.slots.SetType(i, t)
		}
	case slot.FieldName, slot.FieldLabel, slot.FieldHint, slot.FieldInputLabel, slot.FieldInputHint:
		str, ok := value.(string)
		if !ok {
			break
		}
		switch field {
		case slot.FieldName:
			return s.slots.SetName(i, str)
		case slot.FieldLabel:
			return s.slots.SetLabel(i, str)
		case slot.FieldHint:
			return s.slots.SetHint(i, str)
		case slot.FieldInputLabel:
			return s.inputs.SetLabel(i, str)
		default:
			return s.inputs.SetHint(i, str)
		}
	case slot.FieldDefault, slot.FieldMin, slot.FieldMax, slot.FieldValue:
		v, ok := value.(param.Value)
		if !ok {
			break
		}
		switch field {
		case slot.FieldDefault:
			return s.slots.SetDefault(i, v)
		case slot.FieldMin:
			return s.slots.SetMin(i, v)
		case slot.FieldMax:
			return s.slots.SetMax(i, v)
		default:
			return s.slots.SetValue(i, v)
		}
	case slot.FieldExpanded:
		if b, ok := value.(bool); ok {
			return s.slots.SetExpanded(i, b)
		}
	case slot.FieldBBox:
		if b, ok := value.(param.BBox); ok {
			s.slots.SetBBox(b)
			return nil
		}
	case slot.FieldMouse:
		if b, ok := value.(bool); ok {
			s.slots.SetMouseParams(b)
			return nil
		}
	case slot.FieldInputEnabled:
		if b, ok := value.(bool); ok {
			return s.inputs.SetEnabled(i, b)
		}
	case slot.FieldInputFilter:
		if f, ok := value.(param.FilterMode); ok {
			return s.inputs.SetFilter(i, f)
		}
	case slot.FieldInputWrap:
		if w, ok := value.(param.WrapMode); ok {
			return s.inputs.SetWrap(i, w)
		}
	}
	return fmt.Errorf("%w: %T", errFieldValue, value)
}

func (s *session) OnResetToDefaultsRequested() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	count := s.slots.Count()
	for i := 0; i < count; i++ {
		snap, err := s.slots.Slot(i)
		if err != nil || !snap.Live() || snap.Value == snap.Default {
			continue
		}
		if err := s.slots.SetValue(i, snap.Default); err != nil {
			s.logger.Warn("[Session] failed to reset value", "slot", i, "err", err)
		}
	}
}

func (s *session) SetSlotValue(i int, v param.Value) error {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.slots.SetValue(i, v)
}

func (s *session) SetSlotValueByName(name string, v param.Value) error {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	count := s.slots.Count()
	for i := 0; i < count; i++ {
		snap, err := s.slots.Slot(i)
		if err != nil {
			return err
		}
		if snap.Live() && snap.Name == name {
			return s.slots.SetValue(i, v)
		}
	}
	return fmt.Errorf("%w: %s", errUnknownParam, name)
}

func (s *session) SlotView(i int) (slot.Snapshot, error) {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.slots.Slot(i)
}

func (s *session) SlotViews() []slot.Snapshot {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.slots.Snapshots()
}

func (s *session) InputView(i int) (slot.InputSnapshot, error) {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.inputs.Input(i)
}

func (s *session) Visibility() slot.Projection {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return slot.Project(s.slots, s.inputs)
}

func (s *session) BBox() param.BBox {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.slots.BBox()
}

func (s *session) State() state.VersionState {
	return s.controller.State()
}

func (s *session) Phase() state.Phase {
	return s.controller.Phase()
}

func (s *session) LastError() error {
	return s.controller.LastError()
}

func (s *session) Compile(ctx context.Context) error {
	if s.closed.Load() {
		return errClosed
	}
	if s.renderer == nil {
		return errNoRenderer
	}
	s.renderMu.Lock()
	_, notify, err := s.ensureProgram(ctx)
	s.renderMu.Unlock()

	s.raiseParamsUpdated(notify)
	return err
}

func (s *session) Render(ctx context.Context, frame FrameContext, inputs []ChannelInput) (image.Image, error) {
	var img image.Image
	compileErr, err := s.run(ctx, frame, inputs, func(p pipeline.Pipeline, f renderer.Frame) error {
		rgba, err := s.renderer.Render(p, f)
		if err != nil {
			return err
		}
		img = rgba
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, compileErr
}

func (s *session) Present(ctx context.Context, frame FrameContext, inputs []ChannelInput) error {
	compileErr, err := s.run(ctx, frame, inputs, func(p pipeline.Pipeline, f renderer.Frame) error {
		return s.renderer.Present(p, f)
	})
	if err != nil {
		return err
	}
	return compileErr
}

// run brings the program up to date, raises params-updated, builds the frame from the pools and
// hands it to draw. It returns the compile error of the current source separately from errors
// that prevented drawing.
func (s *session) run(ctx context.Context, frame FrameContext, inputs []ChannelInput, draw func(pipeline.Pipeline, renderer.Frame) error) (compileErr, err error) {
	if s.closed.Load() {
		return nil, errClosed
	}
	if s.renderer == nil {
		return nil, errNoRenderer
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errFrameSize, frame.Width, frame.Height)
	}

	s.renderMu.Lock()
	_, notify, compileErr := s.ensureProgram(ctx)
	s.renderMu.Unlock()

	// the handler may re-enter the edit path, so no lock is held here
	s.raiseParamsUpdated(notify)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if s.closed.Load() {
		return nil, errClosed
	}
	// Another render may have compiled while renderMu was released, and the renderer releases
	// the program it replaces. Only the cached program is safe to draw.
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p == nil {
		if compileErr == nil {
			compileErr = errNoProgram
		}
		return nil, compileErr
	}

	f := s.frame(p, frame, inputs)
	start := time.Now()
	if err := draw(p, f); err != nil {
		return nil, fmt.Errorf("failed to render source version %d: %w", p.Version(), err)
	}
	if s.profiler != nil {
		s.profiler.Tick(time.Since(start))
	}
	return compileErr, nil
}

// ensureProgram compiles the current source when the program is older than it and publishes the
// discovered schema. No controller lock is held while compiling. A compile whose source version
// was superseded is not published and the loop compiles the newer version. Caller must hold
// s.renderMu.
//
// It returns the program to render with (the last good one when the current source failed),
// whether params-updated must be raised, and the failure of the current source.
func (s *session) ensureProgram(ctx context.Context) (pipeline.Pipeline, bool, error) {
	for {
		s.mu.Lock()
		current := s.program
		s.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return current, false, err
		}

		t := s.controller.Ticket()
		if current != nil && current.Version() == t.SourceVersion {
			if t.Compiled {
				return current, false, nil
			}
			// compiled was cleared by a sync; republish the schema of the running program
			notify, err := s.controller.MarkCompiled(t, current.Discovery())
			if errors.Is(err, state.ErrStaleCompile) {
				continue
			}
			return current, notify, nil
		}
		if s.controller.Failed() {
			return current, false, s.controller.LastError()
		}

		start := time.Now()
		p, compileErr := s.compile(t)
		if compileErr != nil {
			if err := s.controller.MarkFailed(t, compileErr); errors.Is(err, state.ErrStaleCompile) {
				s.logger.Debug("[Session] stale compile failure ignored", "source_version", t.SourceVersion)
				continue
			}
			if s.profiler != nil {
				s.profiler.CompileFailed()
			}
			s.logger.Warn("[Session] compile failed", "source_version", t.SourceVersion, "err", compileErr)
			return current, false, compileErr
		}

		// The renderer released the previous program when it cached p, so p is kept even when
		// the ticket turns out stale below. It renders as last good until a newer compile lands.
		s.mu.Lock()
		s.program = p
		s.mu.Unlock()

		notify, err := s.controller.MarkCompiled(t, p.Discovery())
		if errors.Is(err, state.ErrStaleCompile) {
			if s.profiler != nil {
				s.profiler.CompileDiscarded()
			}
			s.logger.Debug("[Session] stale compile discarded", "source_version", t.SourceVersion)
			continue
		}
		if s.profiler != nil {
			s.profiler.CompileSucceeded(time.Since(start))
		}
		s.logger.Info("[Session] compiled", "source_version", t.SourceVersion, "layout_version", t.LayoutVersion, "params", len(p.Discovery().Params))
		return p, notify, nil
	}
}

// compile parses and compiles the source of t.
func (s *session) compile(t state.Ticket) (pipeline.Pipeline, error) {
	fragment, err := shader.NewFragmentShader(s.programKey, t.Source, s.channels)
	if err != nil {
		return nil, err
	}
	return s.renderer.Compile(s.programKey, t.SourceVersion, fragment)
}

func (s *session) raiseParamsUpdated(notify bool) {
	if notify && s.onParamsUpdated != nil {
		s.onParamsUpdated()
	}
}

// frame builds the renderer frame of p from the pools. Parameters take the value of the slot
// at their index when that slot is live with the same name and type, else their default.
func (s *session) frame(p pipeline.Pipeline, fc FrameContext, inputs []ChannelInput) renderer.Frame {
	d := p.Discovery()
	fragment := p.Shader(shader.ShaderTypeFragment)

	s.poolMu.Lock()
	values := make([]param.Value, len(d.Params))
	count := s.slots.Count()
	for i, desc := range d.Params {
		values[i] = desc.Default
		if i >= count {
			continue
		}
		snap, err := s.slots.Slot(i)
		if err == nil && snap.Live() && snap.Name == desc.Name && snap.Type == desc.Type {
			values[i] = snap.Value
		}
	}
	mouse := s.slots.MouseParams()
	channels := make([]renderer.Channel, s.channels)
	for k := range channels {
		in := param.DefaultInput()
		if snap, err := s.inputs.Input(k); err == nil {
			in = snap.InputDescriptor
		}
		channels[k].Input = in
	}
	s.poolMu.Unlock()

	g := shader.GPUGlobals{
		Resolution:        [3]float32{float32(fc.Width), float32(fc.Height), 1},
		Time:              fc.Time,
		TimeDelta:         fc.TimeDelta,
		Frame:             fc.Frame,
		FrameRate:         fc.FrameRate,
		SampleRate:        fc.SampleRate,
		RenderScale:       fc.RenderScale,
		Date:              dateUniform(fc.Date),
		ChannelTime:       make([]float32, s.channels),
		ChannelResolution: make([][3]float32, s.channels),
	}
	if g.SampleRate == 0 {
		g.SampleRate = 44100
	}
	if g.RenderScale == [2]float32{} {
		g.RenderScale = [2]float32{1, 1}
	}
	if mouse {
		g.Mouse = mouseUniform(fc)
	}
	for k := 0; k < s.channels && k < len(inputs); k++ {
		in := inputs[k]
		g.ChannelTime[k] = in.Time
		if in.Image == nil {
			continue
		}
		b := in.Image.Bounds()
		g.ChannelResolution[k] = [3]float32{float32(b.Dx()), float32(b.Dy()), 1}
		channels[k].Image = in.Image
	}

	return renderer.Frame{
		Width:    fc.Width,
		Height:   fc.Height,
		Globals:  g,
		Params:   shader.PackParams(fragment.ParamLayout(), d.Params, values),
		Channels: channels,
	}
}

// mouseUniform encodes iMouse: the click position is negated while the button is released.
func mouseUniform(fc FrameContext) [4]float32 {
	click := fc.MouseClick
	if !fc.MousePressed {
		click[0], click[1] = -click[0], -click[1]
	}
	return [4]float32{fc.MousePosition[0], fc.MousePosition[1], click[0], click[1]}
}

// dateUniform encodes iDate: year, month starting at 0, day of month and seconds since midnight.
func dateUniform(t time.Time) [4]float32 {
	if t.IsZero() {
		t = time.Now()
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return [4]float32{
		float32(t.Year()),
		float32(t.Month() - 1),
		float32(t.Day()),
		float32(t.Sub(midnight).Seconds()),
	}
}

func (s *session) RenderAsync(ctx context.Context, frame FrameContext, inputs []ChannelInput) <-chan RenderResult {
	out := make(chan RenderResult, 1)
	if s.closed.Load() {
		out <- RenderResult{Err: errClosed}
		return out
	}

	s.pool.SubmitTask(worker.Task{
		ID: int(s.taskID.Add(1)),
		Do: func() (any, error) {
			img, err := s.Render(ctx, frame, inputs)
			out <- RenderResult{Image: img, Err: err}
			return img, err
		},
	})
	return out
}

func (s *session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.pool.Stop()

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.mu.Lock()
	s.program = nil
	s.mu.Unlock()
	if s.renderer != nil {
		s.renderer.Release()
	}
}
