package shader

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// ShaderType identifies the pipeline stage a shader is built for.
type ShaderType int

const (
	// ShaderTypeVertex is the fullscreen vertex stage, written in WGSL.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is a user fragment stage, generated as GLSL from a mainImage source.
	ShaderTypeFragment
)

// vertexEntryPoint and fragmentEntryPoint are the entry points of the two stages.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "main"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	rawSource     string
	source        string
	shaderType    ShaderType
	entryPoint    string
	module        *wgpu.ShaderModuleDescriptor
	discovery     *param.Discovery
	globalsLayout Layout
	paramLayout   Layout
	headerLines   int
	channels      int
}

// Shader is a parsed, pre-processed stage ready for module creation. Fragment shaders also
// carry the schema discovered from their source and the layouts of their uniform blocks.
type Shader interface {
	// Key retrieves the identifier of this shader, used as a module label.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the generated source handed to the compiler.
	//
	// Returns:
	//   - string: WGSL for the vertex stage, GLSL 450 for fragment stages
	Source() string

	// RawSource retrieves the user source the shader was built from.
	RawSource() string

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: "vs_main" for the vertex stage, "main" for fragment stages
	EntryPoint() string

	// Module returns the shader module descriptor built from the generated source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: a WGSL or GLSL module descriptor
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage of the shader.
	ShaderType() ShaderType

	// Discovery returns the schema discovered from the user source, or nil for the vertex stage.
	Discovery() *param.Discovery

	// GlobalsLayout returns the layout of the globals block.
	GlobalsLayout() Layout

	// ParamLayout returns the layout of the parameter block.
	ParamLayout() Layout

	// Channels returns the number of input channels bound by the shader.
	Channels() int

	// UserLine maps a line of Source() back onto the user source.
	//
	// Parameters:
	//   - line: a 1-based line number in the generated source
	//
	// Returns:
	//   - int: the 1-based user line, or 0 when the line is generated code
	UserLine(line int) int
}

var _ Shader = &shader{}

// NewFragmentShader discovers the parameters of source and generates its fragment stage.
//
// Parameters:
//   - key: a label for the shader
//   - source: the user shader source, defining mainImage
//   - channels: the number of input channels
//
// Returns:
//   - Shader: the fragment shader
//   - error: a *ParseError when discovery fails
func NewFragmentShader(key, source string, channels int) (Shader, error) {
	d, err := Discover(source, channels)
	if err != nil {
		return nil, err
	}
	pp := NewPreProcessor(channels)
	generated, err := pp.Process(source, d)
	if err != nil {
		return nil, err
	}

	return &shader{
		key:        key,
		rawSource:  source,
		source:     generated,
		shaderType: ShaderTypeFragment,
		entryPoint: fragmentEntryPoint,
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			GLSLDescriptor: &wgpu.ShaderModuleGLSLDescriptor{
				Code:        generated,
				ShaderStage: wgpu.ShaderStageFragment,
			},
		},
		discovery:     d,
		globalsLayout: pp.GlobalsLayout(),
		paramLayout:   pp.ParamLayout(),
		headerLines:   pp.HeaderLines(),
		channels:      channels,
	}, nil
}

// NewVertexShader returns the fullscreen triangle vertex stage.
//
// Returns:
//   - Shader: the vertex shader
func NewVertexShader() Shader {
	return &shader{
		key:        "fullscreen",
		rawSource:  GPUFullscreenVertexSource,
		source:     GPUFullscreenVertexSource,
		shaderType: ShaderTypeVertex,
		entryPoint: vertexEntryPoint,
		module: &wgpu.ShaderModuleDescriptor{
			Label: "fullscreen",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: GPUFullscreenVertexSource,
			},
		},
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) RawSource() string {
	return s.rawSource
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Discovery() *param.Discovery {
	return s.discovery
}

func (s *shader) GlobalsLayout() Layout {
	return s.globalsLayout
}

func (s *shader) ParamLayout() Layout {
	return s.paramLayout
}

func (s *shader) Channels() int {
	return s.channels
}

func (s *shader) UserLine(line int) int {
	if s.shaderType != ShaderTypeFragment {
		return line
	}
	user := line - s.headerLines
	if user < 1 || user > countLines(s.rawSource) {
		return 0
	}
	return user
}

func countLines(text string) int {
	n := 1
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			n++
		}
	}
	return n
}
