package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-shadertoy/common"
	"github.com/Carmen-Shannon/oxy-shadertoy/config"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/session"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
)

const annotatedSource = `// iChannel0: Photo (the input), filter=nearest, wrap=clamp
// BBox: iChannel0
uniform float blurSize = 5.0; // Blur (radius), min=0.0, max=10.0
uniform bool invert = false;
void mainImage(out vec4 fragColor, in vec2 fragCoord) {
    fragColor = texture(iChannel0, iMouse.xy / iResolution.xy) * blurSize;
}
`

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.NRGBA{R: 1, A: 255})
	return img
}

func parseRender(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	opts := &options{}
	var cfg config.Config
	var loadErr error
	cmd := newRenderCommand(opts)
	opts.addPersistentFlags(cmd.PersistentFlags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, loadErr = opts.load(cmd)
		return nil
	}
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())
	return cfg, loadErr
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
shader = "a.frag"
width = 100
height = 50

[[channel]]
index = 0
path = "a.png"

[[value]]
name = "gain"
value = "1"
`), 0o644))

	cfg, err := parseRender(t, "--config", path, "--width", "320", "-c", "0=b.png", "-c", "2=c.png", "--set", "blurSize=2", "--software")
	require.NoError(t, err)
	assert.Equal(t, "a.frag", cfg.Shader)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
	assert.True(t, cfg.Software)
	assert.Equal(t, []config.Channel{{Index: 0, Path: "b.png"}, {Index: 2, Path: "c.png"}}, cfg.Channel)
	assert.Equal(t, []config.Value{{Name: "gain", Value: "1"}, {Name: "blurSize", Value: "2"}}, cfg.Value)
}

func TestLoadValidates(t *testing.T) {
	_, err := parseRender(t, "--width", "10")
	assert.Error(t, err, "no shader")

	_, err = parseRender(t, "--shader", "x.frag", "-c", "9=x.png")
	assert.Error(t, err)

	_, err = parseRender(t, "--shader", "x.frag", "-c", "nope")
	assert.Error(t, err)

	_, err = parseRender(t, "--shader", "x.frag", "--set", "blurSize")
	assert.Error(t, err)
}

func TestParseChannel(t *testing.T) {
	ch, err := parseChannel(" 3 = ~/img.png")
	require.NoError(t, err)
	assert.Equal(t, config.Channel{Index: 3, Path: "~/img.png"}, ch)

	_, err = parseChannel("x=img.png")
	assert.Error(t, err)
	_, err = parseChannel("1=")
	assert.Error(t, err)
}

func TestLoadChannels(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "photo.png")
	require.NoError(t, common.SaveImage(solid(6, 3), photo))

	inputs, err := loadChannels(context.Background(), []string{"", photo, ""})
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Nil(t, inputs[0].Image)
	require.NotNil(t, inputs[1].Image)
	assert.Equal(t, 6, inputs[1].Image.Bounds().Dx())

	_, err = loadChannels(context.Background(), []string{filepath.Join(dir, "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutputSize(t *testing.T) {
	inputs := []session.ChannelInput{{Image: solid(4, 8)}, {Image: solid(6, 2)}, {}}
	all := func(int) bool { return true }

	tests := []struct {
		name    string
		bbox    param.BBox
		enabled func(int) bool
		w, h    int
	}{
		{"default", param.BBoxDefault, all, 10, 20},
		{"format", param.BBoxFormat, all, 10, 20},
		{"union", param.BBoxUnion, all, 6, 8},
		{"intersection", param.BBoxIntersection, all, 4, 2},
		{"channel", param.BBoxChannel(1), all, 6, 2},
		{"unbound channel", param.BBoxChannel(2), all, 10, 20},
		{"disabled channel", param.BBoxChannel(0), func(k int) bool { return k != 0 }, 10, 20},
		{"union of enabled", param.BBoxUnion, func(k int) bool { return k == 1 }, 6, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := outputSize(tt.bbox, 10, 20, inputs, tt.enabled)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestFramePath(t *testing.T) {
	assert.Equal(t, "out.png", framePath("out.png", 0, 1))
	assert.Equal(t, "dir/out_0002.png", framePath("dir/out.png", 2, 10))
	assert.Equal(t, "out_0000", framePath("out", 0, 2))
}

func TestApplyOverrides(t *testing.T) {
	s := session.NewSession(session.WithCapacity(2))
	t.Cleanup(s.Close)
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldCount, 1))
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldType, param.UniformTypeVec2))
	require.NoError(t, s.OnUserEditedDiscoveredField(0, slot.FieldName, "offset"))

	require.NoError(t, applyOverrides(s, []config.Value{{Name: "offset", Value: "(1, 2)"}}))
	view, err := s.SlotView(0)
	require.NoError(t, err)
	assert.Equal(t, param.Vec2Value(1, 2), view.Value)

	assert.Error(t, applyOverrides(s, []config.Value{{Name: "missing", Value: "1"}}))
	assert.Error(t, applyOverrides(s, []config.Value{{Name: "offset", Value: "true"}}))
}

func TestDiscoverParams(t *testing.T) {
	cfg := config.Default()
	cfg.Params = 1
	report, err := discoverParams(annotatedSource, cfg)
	require.NoError(t, err)

	require.Len(t, report.Params, 1)
	p := report.Params[0]
	assert.Equal(t, "blurSize", p.Name)
	assert.Equal(t, "float", p.Type)
	assert.Equal(t, "Blur", p.Label)
	assert.Equal(t, "radius", p.Hint)
	assert.NotEmpty(t, p.Min)
	assert.NotEmpty(t, p.Max)
	assert.Equal(t, 1, report.Dropped, "invert does not fit")

	require.Len(t, report.Inputs, 1)
	assert.Equal(t, "Photo", report.Inputs[0].Label)
	assert.Equal(t, param.FilterNearest.String(), report.Inputs[0].Filter)
	assert.Equal(t, param.WrapClamp.String(), report.Inputs[0].Wrap)
	assert.Equal(t, param.BBoxChannel(0).String(), report.BBox)
	assert.True(t, report.Mouse)

	var text bytes.Buffer
	require.NoError(t, writeReport(&text, report))
	assert.Contains(t, text.String(), "blurSize")
	assert.Contains(t, text.String(), "Photo")
	assert.Contains(t, text.String(), "dropped")

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"renderer"`)
}

func TestDiscoverParamsReportsParseErrors(t *testing.T) {
	_, err := discoverParams("uniform int n = 1.5;\n", config.Default())
	assert.Error(t, err)
}
