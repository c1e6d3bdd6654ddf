package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

const blurSource = `const vec2 iRenderScale = vec2(1.,1.);
// iChannel0: Source (Image to blur), filter=linear, wrap=clamp
// BBox: iChannel0
uniform float blurSize = 5.0; // Blur (desc), min=0.0, max=10.0
uniform vec2 center = (0.5, 0.5); // Center, min=(0.,0.), max=(1.,1.)
uniform vec3 tint = vec3(1.0, 0.5, 0.25); // Tint (Color multiplier), min=(0.,0.,0.), max=(1.,1.,1.)
uniform bool invert; // Invert
uniform int taps = 8;
uniform float iTime;
uniform sampler2D unsupported;

void mainImage(out vec4 fragColor, in vec2 fragCoord) {
    vec2 uv = fragCoord / iResolution.xy;
    // texture(iChannel2, uv) is commented out
    vec4 c = texture(iChannel0, uv) * blurSize;
    fragColor = vec4(c.rgb * tint, 1.0);
}
`

func TestDiscoverBlurSize(t *testing.T) {
	d, err := Discover("uniform float blurSize = 5.0; // Blur (desc), min=0.0, max=10.0\n", 4)
	require.NoError(t, err)
	require.Len(t, d.Params, 1)
	assert.Equal(t, param.Descriptor{
		Type:    param.UniformTypeFloat,
		Name:    "blurSize",
		Label:   "Blur",
		Hint:    "desc",
		Default: param.FloatValue(5),
		Min:     param.FloatValue(0),
		Max:     param.FloatValue(10),
	}, d.Params[0])
	assert.Len(t, d.Inputs, 4)
	assert.False(t, d.Mouse)
	assert.Equal(t, param.BBoxDefault, d.BBox)
}

func TestDiscoverFullSource(t *testing.T) {
	d, err := Discover(blurSource, 4)
	require.NoError(t, err)

	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"blurSize", "center", "tint", "invert", "taps"}, names)

	center := d.Params[1]
	assert.Equal(t, "Center", center.Label)
	assert.Empty(t, center.Hint)
	assert.Equal(t, param.Vec2Value(0.5, 0.5), center.Default)
	assert.Equal(t, param.Vec2Value(0, 0), center.Min)
	assert.Equal(t, param.Vec2Value(1, 1), center.Max)

	tint := d.Params[2]
	assert.Equal(t, "Tint", tint.Label)
	assert.Equal(t, "Color multiplier", tint.Hint)
	assert.Equal(t, param.Vec3Value(1, 0.5, 0.25), tint.Default)
	assert.Equal(t, param.UniformTypeNone, tint.Min.Type(), "vec3 has no range")

	assert.Equal(t, param.BoolValue(false), d.Params[3].Default)
	assert.Equal(t, param.IntValue(8), d.Params[4].Default)
	assert.Empty(t, d.Params[4].Label)

	src := d.Inputs[0]
	assert.True(t, src.Enabled)
	assert.Equal(t, "Source", src.Label)
	assert.Equal(t, "Image to blur", src.Hint)
	assert.Equal(t, param.FilterLinear, src.Filter)
	assert.Equal(t, param.WrapClamp, src.Wrap)
	assert.False(t, d.Inputs[2].Enabled, "uses inside comments do not enable a channel")
	assert.Equal(t, param.DefaultInput(), d.Inputs[3])

	assert.Equal(t, param.BBoxChannel(0), d.BBox)
}

func TestDiscoverMouse(t *testing.T) {
	d, err := Discover("void mainImage(out vec4 c, in vec2 p) { c = iMouse / 100.0; }", 4)
	require.NoError(t, err)
	assert.True(t, d.Mouse)

	d, err = Discover("// iMouse is not used\nvoid mainImage(out vec4 c, in vec2 p) {}", 4)
	require.NoError(t, err)
	assert.False(t, d.Mouse)
}

func TestDiscoverIgnoresChannelsPastCapacity(t *testing.T) {
	d, err := Discover("// iChannel3: Extra\nvoid mainImage(out vec4 c, in vec2 p) { c = texture(iChannel3, p); }", 2)
	require.NoError(t, err)
	require.Len(t, d.Inputs, 2)
	for _, in := range d.Inputs {
		assert.Equal(t, param.DefaultInput(), in)
	}
}

func TestDiscoverErrors(t *testing.T) {
	cases := map[string]string{
		"bad initializer": "\n\nuniform float x = abc;",
		"bad min":         "\n\nuniform float x = 1.0; // X, min=low",
		"bad option":      "\n\nuniform float x = 1.0; // X, filter=linear",
		"bad filter":      "\n\n// iChannel0: A, filter=bicubic",
		"bad wrap":        "\n\n// iChannel0: A, wrap=border",
		"bad bbox":        "\n\n// BBox: everything",
		"missing channel": "\n\n// BBox: iChannel9",
	}
	for name, src := range cases {
		_, err := Discover(src, 4)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, name)
		assert.Equal(t, 3, perr.Line, name)
	}
}

func TestDiscoverIgnoresRangeOfVectorTypes(t *testing.T) {
	d, err := Discover("uniform vec4 c = (1., 1., 1., 1.); // Color, min=(0.,0.,0.,0.), max=oops", 4)
	require.NoError(t, err)
	require.Len(t, d.Params, 1)
	assert.Equal(t, "Color", d.Params[0].Label)
	assert.Equal(t, param.UniformTypeNone, d.Params[0].Max.Type())
}

func TestSplitLabelHint(t *testing.T) {
	label, hint := splitLabelHint("Blur Size (The blur size (in pixels).)")
	assert.Equal(t, "Blur Size", label)
	assert.Equal(t, "The blur size (in pixels).", hint)

	label, hint = splitLabelHint("Plain")
	assert.Equal(t, "Plain", label)
	assert.Empty(t, hint)
}
