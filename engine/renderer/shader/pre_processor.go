// pre_processor.go turns a Shadertoy-style fragment shader (a mainImage function plus uniform
// declarations) into a complete GLSL 450 fragment stage for the wgpu GLSL front end.
//
// The generated stage is laid out as:
//   - the globals block at set 0 binding 0, with iChannel<k> textures and samplers after it
//   - the parameter block at set 1 binding 0, one member per discovered parameter, with a
//     #define mapping each parameter name onto its member
//   - the user source, with discovered and builtin uniform declarations blanked out
//   - the main entry point calling mainImage
//
// User lines keep their relative order, so a compiler line number maps back to the user source
// by subtracting the header length.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

type preProcessor struct {
	channels      int
	globalsLayout Layout
	paramLayout   Layout
	headerLines   int
}

// PreProcessor rewrites shader source into a complete fragment stage.
type PreProcessor interface {
	// Process rewrites source for the given discovered schema.
	//
	// Parameters:
	//   - source: the user shader source
	//   - d: the schema discovered from source
	//
	// Returns:
	//   - string: the complete GLSL fragment stage
	//   - error: if a discovered parameter's declaration cannot be located
	Process(source string, d *param.Discovery) (string, error)

	// GlobalsLayout returns the globals block layout.
	GlobalsLayout() Layout

	// ParamLayout returns the parameter block layout built by the last Process call.
	ParamLayout() Layout

	// HeaderLines returns the number of generated lines before the first user line in the
	// output of the last Process call.
	HeaderLines() int
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor for m input channels.
//
// Parameters:
//   - channels: the number of input channels
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(channels int) PreProcessor {
	return &preProcessor{
		channels:      channels,
		globalsLayout: NewGlobalsLayout(channels),
	}
}

func (p *preProcessor) Process(source string, d *param.Discovery) (string, error) {
	p.paramLayout = NewParamLayout(d.Params)

	var header strings.Builder
	header.WriteString("#version 450\n")
	header.WriteString(globalsDeclaration(p.globalsLayout, p.channels))
	header.WriteString(paramsDeclaration(p.paramLayout, d.Params))
	headerText := header.String()
	p.headerLines = strings.Count(headerText, "\n")

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	next := 0
	for i, line := range lines {
		if i == 0 && strings.HasPrefix(strings.TrimSpace(line), renderScalePrefix) {
			out = append(out, "// "+line)
			continue
		}
		decl, ok := matchUniform(line, i+1)
		if !ok {
			out = append(out, line)
			continue
		}
		_, isParam, err := decl.descriptor()
		if err != nil {
			return "", err
		}
		switch {
		case isParam:
			if next >= len(d.Params) || d.Params[next].Name != decl.name {
				return "", parseErrorf(i+1, "uniform %s does not match the discovered parameters", decl.name)
			}
			next++
			out = append(out, "")
		case decl.builtin():
			out = append(out, "")
		default:
			out = append(out, line)
		}
	}
	if next != len(d.Params) {
		return "", fmt.Errorf("shader: %d discovered parameters, %d declarations found", len(d.Params), next)
	}

	return headerText + strings.Join(out, "\n") + "\n" + gpuMainImageSource, nil
}

func (p *preProcessor) GlobalsLayout() Layout {
	return p.globalsLayout
}

func (p *preProcessor) ParamLayout() Layout {
	return p.paramLayout
}

func (p *preProcessor) HeaderLines() int {
	return p.headerLines
}

// paramsDeclaration renders the parameter block and the #define of every parameter name.
func paramsDeclaration(l Layout, params []param.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "layout(set = %d, binding = 0) uniform OxyParams {\n", ParamsGroup)
	for _, m := range l.Members {
		sb.WriteString("    " + m.Declaration() + "\n")
	}
	sb.WriteString("};\n")
	for i, p := range params {
		if p.Type == param.UniformTypeBool {
			fmt.Fprintf(&sb, "#define %s (%s != 0)\n", p.Name, paramMemberName(i))
			continue
		}
		fmt.Fprintf(&sb, "#define %s %s\n", p.Name, paramMemberName(i))
	}
	return sb.String()
}
