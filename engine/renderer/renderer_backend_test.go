package renderer

import (
	"errors"
	"image"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
)

func TestNewCompileErrorMapsLines(t *testing.T) {
	src := "uniform float gain = 1.0;\nvoid mainImage(out vec4 c, in vec2 p) {\n    c = vec4(gian);\n}"
	fs, err := shader.NewFragmentShader("frag", src, 4)
	require.NoError(t, err)

	var generated int
	for i, line := range strings.Split(fs.Source(), "\n") {
		if strings.Contains(line, "gian") {
			generated = i + 1
		}
	}
	require.NotZero(t, generated)

	ce := newCompileError(fs, errors.New("Shader validation error:\n  ┌─ frag:"+strconv.Itoa(generated)+":14\n  unknown identifier `gian`"))
	assert.Equal(t, 3, ce.Line)
	assert.Contains(t, ce.Error(), "compile error at line 3")

	ce = newCompileError(fs, errors.New("error at line "+strconv.Itoa(generated)+": bad"))
	assert.Equal(t, 3, ce.Line)

	ce = newCompileError(fs, errors.New("device lost"))
	assert.Zero(t, ce.Line)
	assert.Equal(t, "compile error: device lost", ce.Error())
}

func TestNewCompileErrorInHeader(t *testing.T) {
	fs, err := shader.NewFragmentShader("frag", "void mainImage(out vec4 c, in vec2 p) {}", 4)
	require.NoError(t, err)

	ce := newCompileError(fs, errors.New("frag:2:1: error"))
	assert.Zero(t, ce.Line, "generated header lines have no user line")
}

func TestFrameChannel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	f := Frame{Channels: []Channel{{Image: img, Input: param.InputDescriptor{Filter: param.FilterNearest}}}}

	assert.Equal(t, img, f.channel(0).Image)
	assert.Equal(t, param.FilterNearest, f.channel(0).Input.Filter)
	assert.Nil(t, f.channel(3).Image)
	assert.Equal(t, param.DefaultInput(), f.channel(3).Input)
}

func TestSameImage(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 1, 1))

	assert.True(t, sameImage(nil, nil))
	assert.True(t, sameImage(a, a))
	assert.False(t, sameImage(a, b))
	assert.False(t, sameImage(a, nil))
	assert.False(t, sameImage(nil, b))
}
