package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

func TestNewController(t *testing.T) {
	c := NewController(WithSource("void mainImage(out vec4 c, in vec2 p) {}"))
	assert.Equal(t, VersionState{SourceVersion: 1, LayoutVersion: 1}, c.State())
	assert.Equal(t, PhaseDirty, c.Phase())
	assert.NotEmpty(t, c.Source())
	d, v := c.Published()
	assert.Nil(t, d)
	assert.Zero(t, v)
}

func TestRequestRecompile(t *testing.T) {
	c := NewController()
	c.RequestAutoSync()
	require.True(t, c.State().UpdatePending)

	v := c.RequestRecompile()
	assert.Equal(t, uint64(3), v)
	st := c.State()
	assert.False(t, st.Compiled)
	assert.False(t, st.UpdatePending)
}

func TestStaleCompileIsDiscarded(t *testing.T) {
	c := NewController()
	c.RequestRecompile()
	c.RequestRecompile()
	stale := c.Ticket()
	require.Equal(t, uint64(3), stale.SourceVersion)

	// edit lands while the compile of version 3 is running
	c.SetSource("edited")
	require.Equal(t, uint64(4), c.State().SourceVersion)

	_, err := c.MarkCompiled(stale, &param.Discovery{})
	assert.ErrorIs(t, err, ErrStaleCompile)
	assert.False(t, c.State().Compiled)
	d, _ := c.Published()
	assert.Nil(t, d)

	assert.ErrorIs(t, c.MarkFailed(stale, errors.New("boom")), ErrStaleCompile)
	assert.False(t, c.Failed())

	fresh := c.Ticket()
	assert.Equal(t, "edited", fresh.Source)
	_, err = c.MarkCompiled(fresh, &param.Discovery{})
	require.NoError(t, err)
	assert.True(t, c.State().Compiled)
	_, v := c.Published()
	assert.Equal(t, uint64(4), v)
}

func TestAutoSyncTwoStep(t *testing.T) {
	c := NewController()
	before := c.State().SourceVersion

	assert.Equal(t, SyncRecompile, c.RequestAutoSync())
	st := c.State()
	assert.Equal(t, before+1, st.SourceVersion)
	assert.True(t, st.UpdatePending)
	assert.False(t, st.Compiled)

	d := &param.Discovery{Params: []param.Descriptor{{Type: param.UniformTypeFloat, Name: "x"}}}
	notify, err := c.MarkCompiled(c.Ticket(), d)
	require.NoError(t, err)
	assert.True(t, notify)
	assert.Equal(t, PhaseAwaitingSync, c.Phase())

	assert.Equal(t, SyncReconcile, c.RequestAutoSync())
	st = c.State()
	assert.Equal(t, before+1, st.SourceVersion, "second request must not bump the source version")
	assert.False(t, st.Compiled)
	assert.True(t, st.UpdatePending)

	got, ok := c.TakePending()
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.False(t, c.State().UpdatePending)
	assert.Equal(t, PhaseIdle, c.Phase())

	_, ok = c.TakePending()
	assert.False(t, ok)
}

func TestExplicitRecompileDoesNotNotify(t *testing.T) {
	c := NewController()
	c.RequestRecompile()
	notify, err := c.MarkCompiled(c.Ticket(), &param.Discovery{})
	require.NoError(t, err)
	assert.False(t, notify)
	assert.Equal(t, PhaseIdle, c.Phase())

	_, ok := c.TakePending()
	assert.False(t, ok)
}

func TestAutoSyncAfterReconcileRecompiles(t *testing.T) {
	c := NewController()
	c.RequestAutoSync()
	_, err := c.MarkCompiled(c.Ticket(), &param.Discovery{})
	require.NoError(t, err)
	require.Equal(t, SyncReconcile, c.RequestAutoSync())
	_, ok := c.TakePending()
	require.True(t, ok)

	v := c.State().SourceVersion
	assert.Equal(t, SyncRecompile, c.RequestAutoSync())
	assert.Equal(t, v+1, c.State().SourceVersion)
}

func TestMarkLayoutChanged(t *testing.T) {
	c := NewController()
	c.RequestRecompile()
	_, err := c.MarkCompiled(c.Ticket(), &param.Discovery{})
	require.NoError(t, err)

	v := c.MarkLayoutChanged()
	st := c.State()
	assert.Equal(t, uint64(2), v)
	assert.Equal(t, uint64(2), st.SourceVersion)
	assert.True(t, st.Compiled, "a layout edit does not force a recompile")
	assert.Equal(t, uint64(2), c.Ticket().LayoutVersion)
}

func TestMarkFailedKeepsPublishedSchema(t *testing.T) {
	c := NewController()
	good := &param.Discovery{BBox: param.BBoxUnion}
	_, err := c.MarkCompiled(c.Ticket(), good)
	require.NoError(t, err)

	c.SetSource("broken")
	failure := errors.New("line 3: syntax error")
	require.NoError(t, c.MarkFailed(c.Ticket(), failure))

	assert.True(t, c.Failed())
	assert.Equal(t, failure, c.LastError())
	assert.False(t, c.State().Compiled)
	d, v := c.Published()
	assert.Same(t, good, d)
	assert.Equal(t, uint64(1), v)

	c.RequestRecompile()
	assert.False(t, c.Failed())
	assert.NoError(t, c.LastError())
}

func TestConcurrentEditsAreSerialized(t *testing.T) {
	c := NewController()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.RequestRecompile()
		}()
		go func() {
			defer wg.Done()
			c.MarkLayoutChanged()
		}()
	}
	wg.Wait()

	st := c.State()
	assert.Equal(t, uint64(51), st.SourceVersion)
	assert.Equal(t, uint64(51), st.LayoutVersion)
}
