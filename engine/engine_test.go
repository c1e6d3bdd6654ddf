package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/window"
)

const blurSource = `uniform float blurSize = 5.0; // Blur
void mainImage(out vec4 fragColor, in vec2 fragCoord) {
    fragColor = vec4(blurSize);
}
`

func newHeadlessEngine(t *testing.T, options ...EngineBuilderOption) *engine {
	t.Helper()
	s := session.NewSession(session.WithSource(blurSource), session.WithCapacity(2))
	t.Cleanup(s.Close)
	return NewEngine(append([]EngineBuilderOption{WithSession(s)}, options...)...).(*engine)
}

func TestRunRequiresWindow(t *testing.T) {
	e := newHeadlessEngine(t)
	assert.ErrorIs(t, e.Run(context.Background()), errNoWindow)
}

func TestDefaultKeyBindings(t *testing.T) {
	e := newHeadlessEngine(t)
	s := e.Session()

	v := s.State().SourceVersion
	e.handleKey(common.KeyR)
	assert.Equal(t, v+1, s.State().SourceVersion)

	e.handleKey(common.KeySpace)
	assert.True(t, e.Paused())
	e.handleKey(common.KeySpace)
	assert.False(t, e.Paused())

	// unbound keys and the parameter dump do nothing harmful
	e.handleKey(common.KeyP)
	e.handleKey(12345)
}

func TestResetKeyRestoresDefaults(t *testing.T) {
	e := newHeadlessEngine(t)
	s := e.Session()
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldCount, 1))
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldType, param.UniformTypeFloat))
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldName, "gain"))
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldDefault, param.FloatValue(1)))

	require.NoError(t, s.SetSlotValue(0, param.FloatValue(3)))
	e.handleKey(common.KeyD)
	view, err := s.SlotView(0)
	require.NoError(t, err)
	assert.Equal(t, param.FloatValue(1), view.Value)
}

func TestBindKey(t *testing.T) {
	e := newHeadlessEngine(t)
	calls := 0
	e.BindKey(common.KeyR, func() { calls++ })
	v := e.Session().State().SourceVersion

	e.handleKey(common.KeyR)
	assert.Equal(t, 1, calls)
	assert.Equal(t, v, e.Session().State().SourceVersion, "the binding was replaced")

	e.BindKey(common.KeyR, nil)
	e.handleKey(common.KeyR)
	assert.Equal(t, 1, calls)
}

func TestClockExcludesPauses(t *testing.T) {
	t0 := time.Unix(100, 0)
	c := newClock(t0)
	assert.Equal(t, 2*time.Second, c.elapsed(t0.Add(2*time.Second)))

	c.setPaused(t0.Add(2*time.Second), true)
	assert.Equal(t, 2*time.Second, c.elapsed(t0.Add(5*time.Second)))
	c.setPaused(t0.Add(3*time.Second), true)

	c.setPaused(t0.Add(6*time.Second), false)
	assert.Equal(t, 3*time.Second, c.elapsed(t0.Add(7*time.Second)))
}

func TestFrameContextUsesInputSnapshot(t *testing.T) {
	e := newHeadlessEngine(t)
	e.width, e.height = 320, 200
	e.mouse = window.Mouse{Position: [2]float32{1, 2}, Click: [2]float32{3, 4}, Pressed: true}

	now := time.Now()
	fc := e.frameContext(now, 20*time.Millisecond, 7)
	assert.Equal(t, 320, fc.Width)
	assert.Equal(t, 200, fc.Height)
	assert.Equal(t, int32(7), fc.Frame)
	assert.InDelta(t, 0.02, fc.TimeDelta, 1e-6)
	assert.InDelta(t, 50, fc.FrameRate, 1e-3)
	assert.Equal(t, now, fc.Date)
	assert.Equal(t, [2]float32{1, 2}, fc.MousePosition)
	assert.Equal(t, [2]float32{3, 4}, fc.MouseClick)
	assert.True(t, fc.MousePressed)
}

func TestReportQueuesTitleOnChange(t *testing.T) {
	e := newHeadlessEngine(t, WithTitle("blur"))

	e.report(errors.New("line 2: boom"))
	assert.Equal(t, "blur (error)", e.pendingTitle)
	e.pendingTitle = ""

	e.report(errors.New("line 2: boom"))
	assert.Empty(t, e.pendingTitle, "an unchanged status queues nothing")

	e.report(nil)
	assert.Equal(t, "blur", e.pendingTitle)
}

func TestRenderLoopStopsAfterMaxFrames(t *testing.T) {
	e := newHeadlessEngine(t, WithMaxFrames(3))
	e.width, e.height = 4, 4

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.wg.Add(1)
		e.handleRender(context.Background())
	}()
	wg.Wait()

	assert.True(t, e.quitting())
	// the session has no renderer, so every frame reported the same failure
	assert.Equal(t, "shadertoy (error)", e.pendingTitle)
}

func TestSetRenderFrameLimit(t *testing.T) {
	e := newHeadlessEngine(t, WithRenderFrameLimit(50))
	assert.Equal(t, 20*time.Millisecond, e.renderFrameLimit)
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
}
