package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

// GPUFullscreenVertexSource is the WGSL vertex stage shared by every program. It draws one
// triangle covering the viewport without any vertex buffer (draw with 3 vertices).
//
//go:embed assets/fullscreen.wgsl
var GPUFullscreenVertexSource string

// gpuMainImageSource is the GLSL entry point appended after user source. It calls mainImage with
// a bottom-left origin fragment coordinate.
//
//go:embed assets/main_image.glsl
var gpuMainImageSource string

// Bind group and binding numbers of the generated GLSL.
const (
	// GlobalsGroup holds the globals block at binding 0 followed by one texture and one sampler
	// per input channel.
	GlobalsGroup = 0

	// ParamsGroup holds the parameter block at binding 0.
	ParamsGroup = 1
)

// ChannelTextureBinding returns the binding of the texture of channel k in GlobalsGroup.
func ChannelTextureBinding(k int) int { return 1 + 2*k }

// ChannelSamplerBinding returns the binding of the sampler of channel k in GlobalsGroup.
func ChannelSamplerBinding(k int) int { return 2 + 2*k }

// GPUGlobals is the CPU-side copy of the globals block (see NewGlobalsLayout).
type GPUGlobals struct {
	Resolution        [3]float32   // iResolution: viewport size in pixels, z = pixel aspect
	Time              float32      // iTime (also iGlobalTime): seconds since start
	TimeDelta         float32      // iTimeDelta: seconds since the previous frame
	Frame             int32        // iFrame: frame number
	FrameRate         float32      // iFrameRate: frames per second
	SampleRate        float32      // iSampleRate: audio sample rate
	Mouse             [4]float32   // iMouse: xy = position, zw = click (negated when released)
	Date              [4]float32   // iDate: year, month (0-based), day, seconds in day
	RenderScale       [2]float32   // iRenderScale: render scale of the host
	ChannelTime       []float32    // iChannelTime[M]: playback time of each channel
	ChannelResolution [][3]float32 // iChannelResolution[M]: size of each channel
}

// NewGlobalsLayout returns the std140 layout of the globals block for m channels.
//
// Parameters:
//   - m: the number of input channels
//
// Returns:
//   - Layout: the globals block layout
func NewGlobalsLayout(m int) Layout {
	l, err := NewLayout(
		Member{Name: "iResolution", Type: "vec3"},
		Member{Name: "iTime", Type: "float"},
		Member{Name: "iTimeDelta", Type: "float"},
		Member{Name: "iFrame", Type: "int"},
		Member{Name: "iFrameRate", Type: "float"},
		Member{Name: "iSampleRate", Type: "float"},
		Member{Name: "iMouse", Type: "vec4"},
		Member{Name: "iDate", Type: "vec4"},
		Member{Name: "iRenderScale", Type: "vec2"},
		Member{Name: "iChannelTime", Type: "float", Count: m},
		Member{Name: "iChannelResolution", Type: "vec3", Count: m},
	)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to lay out globals: %v", err))
	}
	return l
}

// Marshal serializes the globals into a buffer matching l. Channel arrays longer than the layout
// are truncated; missing entries stay zero.
//
// Parameters:
//   - l: a layout returned by NewGlobalsLayout
//
// Returns:
//   - []byte: l.Size bytes ready for GPU upload
func (g *GPUGlobals) Marshal(l Layout) []byte {
	buf := make([]byte, l.Size)
	for _, m := range l.Members {
		switch m.Name {
		case "iResolution":
			putFloats(buf, m.Offset, g.Resolution[:]...)
		case "iTime":
			putFloats(buf, m.Offset, g.Time)
		case "iTimeDelta":
			putFloats(buf, m.Offset, g.TimeDelta)
		case "iFrame":
			putInt32(buf, m.Offset, g.Frame)
		case "iFrameRate":
			putFloats(buf, m.Offset, g.FrameRate)
		case "iSampleRate":
			putFloats(buf, m.Offset, g.SampleRate)
		case "iMouse":
			putFloats(buf, m.Offset, g.Mouse[:]...)
		case "iDate":
			putFloats(buf, m.Offset, g.Date[:]...)
		case "iRenderScale":
			putFloats(buf, m.Offset, g.RenderScale[:]...)
		case "iChannelTime":
			for k := 0; k < m.Count && k < len(g.ChannelTime); k++ {
				putFloats(buf, m.Offset+uint64(k)*m.Stride, g.ChannelTime[k])
			}
		case "iChannelResolution":
			for k := 0; k < m.Count && k < len(g.ChannelResolution); k++ {
				putFloats(buf, m.Offset+uint64(k)*m.Stride, g.ChannelResolution[k][:]...)
			}
		}
	}
	return buf
}

// globalsDeclaration renders the GLSL declarations of the globals block and channel bindings.
func globalsDeclaration(l Layout, channels int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "layout(set = %d, binding = 0) uniform OxyGlobals {\n", GlobalsGroup)
	for _, m := range l.Members {
		sb.WriteString("    " + m.Declaration() + "\n")
	}
	sb.WriteString("};\n")
	sb.WriteString("#define iGlobalTime iTime\n")
	for k := 0; k < channels; k++ {
		fmt.Fprintf(&sb, "layout(set = %d, binding = %d) uniform texture2D oxy_channel%d_tex;\n", GlobalsGroup, ChannelTextureBinding(k), k)
		fmt.Fprintf(&sb, "layout(set = %d, binding = %d) uniform sampler oxy_channel%d_smp;\n", GlobalsGroup, ChannelSamplerBinding(k), k)
		fmt.Fprintf(&sb, "#define iChannel%d sampler2D(oxy_channel%d_tex, oxy_channel%d_smp)\n", k, k, k)
	}
	return sb.String()
}
