package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

func TestNewPoolStartsInert(t *testing.T) {
	p := NewPool(WithCapacity(3))
	require.Equal(t, 3, p.Capacity())
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, param.BBoxDefault, p.BBox())

	for _, s := range p.Snapshots() {
		assert.True(t, s.Blank())
		assert.True(t, s.Expanded)
		assert.False(t, s.Live())
	}
	assert.Equal(t, uint64(0), p.Writes())
}

func TestSetTypeResetsPayloads(t *testing.T) {
	p := NewPool(WithCapacity(1))
	require.NoError(t, p.SetType(0, param.UniformTypeVec3))
	require.NoError(t, p.SetDefault(0, param.Vec3Value(1, 2, 3)))
	require.NoError(t, p.SetValue(0, param.Vec3Value(4, 5, 6)))

	require.NoError(t, p.SetType(0, param.UniformTypeInt))
	s, err := p.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, param.UniformTypeInt, s.Type)
	assert.Equal(t, param.Zero(param.UniformTypeInt), s.Default)
	assert.Equal(t, param.Zero(param.UniformTypeInt), s.Value)
	assert.Equal(t, [3]float32{}, s.Default.Vec3())
	assert.Equal(t, param.UniformTypeNone, s.Min.Type())
}

func TestTypedSettersRejectMismatches(t *testing.T) {
	p := NewPool(WithCapacity(1))
	require.NoError(t, p.SetType(0, param.UniformTypeVec4))

	assert.ErrorIs(t, p.SetDefault(0, param.FloatValue(1)), errTypeMismatch)
	assert.ErrorIs(t, p.SetValue(0, param.Vec3Value(1, 1, 1)), errTypeMismatch)
	assert.ErrorIs(t, p.SetMin(0, param.Vec4Value(0, 0, 0, 0)), errNoRange)
	assert.NoError(t, p.SetMin(0, param.Value{}))

	require.NoError(t, p.SetType(0, param.UniformTypeFloat))
	assert.NoError(t, p.SetMax(0, param.FloatValue(10)))
	assert.ErrorIs(t, p.SetMax(0, param.IntValue(10)), errTypeMismatch)
}

func TestIndexAndCountBounds(t *testing.T) {
	p := NewPool(WithCapacity(2))
	_, err := p.Slot(2)
	assert.ErrorIs(t, err, errSlotIndex)
	assert.ErrorIs(t, p.SetName(-1, "x"), errSlotIndex)
	assert.ErrorIs(t, p.SetCount(3), errCount)
	assert.NoError(t, p.SetCount(2))
}

func TestEveryWriteNotifies(t *testing.T) {
	var seen []Field
	p := NewPool(WithCapacity(1), WithObserver(func(_ int, f Field) {
		seen = append(seen, f)
	}))

	require.NoError(t, p.SetName(0, "a"))
	require.NoError(t, p.SetName(0, "a"))
	p.SetMouseParams(true)

	assert.Equal(t, []Field{FieldName, FieldName, FieldMouse}, seen)
	assert.Equal(t, uint64(3), p.Writes())
}

func TestResetKeepsExpanded(t *testing.T) {
	p := NewPool(WithCapacity(1))
	require.NoError(t, p.SetType(0, param.UniformTypeFloat))
	require.NoError(t, p.SetName(0, "gain"))
	require.NoError(t, p.SetExpanded(0, false))

	require.NoError(t, p.Reset(0))
	s, _ := p.Slot(0)
	assert.True(t, s.Blank())
	assert.False(t, s.Expanded)
}

func TestInputPool(t *testing.T) {
	p := NewInputPool(WithChannels(2))
	require.Equal(t, 2, p.Capacity())

	in, err := p.Input(1)
	require.NoError(t, err)
	assert.Equal(t, param.DefaultInput(), in.InputDescriptor)
	assert.Equal(t, "iChannel1", in.ClipLabel())

	require.NoError(t, p.SetLabel(1, "Noise"))
	require.NoError(t, p.SetFilter(1, param.FilterLinear))
	in, _ = p.Input(1)
	assert.Equal(t, "Noise", in.ClipLabel())
	assert.Equal(t, param.FilterLinear, in.Filter)

	require.NoError(t, p.Reset(1))
	in, _ = p.Input(1)
	assert.Equal(t, param.DefaultInput(), in.InputDescriptor)

	_, err = p.Input(2)
	assert.ErrorIs(t, err, errSlotIndex)
}

func TestFieldStructural(t *testing.T) {
	assert.True(t, FieldCount.Structural())
	assert.True(t, FieldName.Structural())
	assert.True(t, FieldType.Structural())
	assert.False(t, FieldLabel.Structural())
	assert.False(t, FieldDefault.Structural())
	assert.False(t, FieldValue.Structural())
}

func TestBuilderPanicsOnInvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { NewPool(WithCapacity(0)) })
	assert.Panics(t, func() { NewInputPool(WithChannels(-1)) })
}
