package renderer

import (
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/renderer/shader"
)

var (
	errInvalidFrameSize = errors.New("frame size must be positive")
	errNoFragmentShader = errors.New("pipeline has no fragment shader")
	errNoSurface        = errors.New("renderer has no presentation surface")
	errMapReadback      = errors.New("readback buffer map was not successful")
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Channel is the image bound to one input channel for a frame.
type Channel struct {
	// Image is the channel image, or nil for an unbound channel which samples as black.
	Image image.Image

	// Input holds the sampler settings of the channel.
	Input param.InputDescriptor
}

// Frame describes one invocation of a compiled program.
type Frame struct {
	// Width and Height are the output size in pixels.
	Width, Height int

	// Globals holds the values of the globals block.
	Globals shader.GPUGlobals

	// Params is the packed parameter block, laid out by the fragment shader's ParamLayout.
	Params []byte

	// Channels holds one entry per input channel. Missing entries are unbound.
	Channels []Channel
}

// channel returns the frame's channel k, or an unbound channel with default settings.
func (f Frame) channel(k int) Channel {
	if k < len(f.Channels) {
		return f.Channels[k]
	}
	return Channel{Input: param.DefaultInput()}
}

// Info describes the GPU adapter backing a Renderer.
type Info struct {
	// Adapter is the adapter name.
	Adapter string

	// Driver is the driver description.
	Driver string

	// Backend is the native API in use, e.g. Vulkan or Metal.
	Backend string

	// AdapterType is the adapter kind, e.g. discrete GPU or CPU.
	AdapterType string

	// Software reports whether the fallback adapter was requested.
	Software bool
}

// CompileError reports a shader that the GPU backend rejected.
type CompileError struct {
	// Line is the 1-based line in the user source, or 0 when the error does not point into it.
	Line int

	// Msg is the compiler message.
	Msg string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Msg)
	}
	return "compile error: " + e.Msg
}

// locationPattern matches the "name:line:column" locations of compiler diagnostics.
var (
	locationPattern = regexp.MustCompile(`:(\d+):(\d+)`)
	linePattern     = regexp.MustCompile(`(?i)\bline (\d+)`)
)

// newCompileError wraps a backend error, mapping the first source location it mentions onto the
// user source of fragment.
func newCompileError(fragment shader.Shader, err error) *CompileError {
	msg := strings.TrimSpace(err.Error())
	ce := &CompileError{Msg: msg}

	m := locationPattern.FindStringSubmatch(msg)
	if m == nil {
		m = linePattern.FindStringSubmatch(msg)
	}
	if m != nil && fragment != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			ce.Line = fragment.UserLine(line)
		}
	}
	return ce
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
