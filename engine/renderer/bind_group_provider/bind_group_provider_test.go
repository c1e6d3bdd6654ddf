package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderIsDirty(t *testing.T) {
	p := NewBindGroupProvider("globals")
	assert.Equal(t, "globals", p.Label())
	assert.True(t, p.Dirty())
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.Entries())
}

func TestSetSamplerDirtiesOnlyOnChange(t *testing.T) {
	p := NewBindGroupProvider("globals")
	p.SetSampler(2, nil)
	p.SetBindGroup(nil)
	assert.True(t, p.Dirty(), "a nil bind group still needs building")

	impl, ok := p.(*bindGroupProvider)
	require.True(t, ok)
	impl.dirty = false
	p.SetSampler(2, nil)
	assert.False(t, p.Dirty(), "rebinding the same sampler keeps the bind group")

	p.SetSampler(4, nil)
	assert.True(t, p.Dirty())
}

func TestEntriesSkipUnsetResources(t *testing.T) {
	p := NewBindGroupProvider("params", WithBuffer(0, nil))
	p.SetTexture(1, nil, nil)
	assert.Empty(t, p.Entries())
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.TextureView(1))

	p.Release()
	assert.True(t, p.Dirty())
}
