// annotations.go implements discovery of the tunable parameters of a Shadertoy-style fragment
// shader. Parameters are ordinary uniform declarations documented by a trailing comment;
// input channels and the output bounding box are described by comment directives:
//
//	uniform float blurSize = 5.0; // Blur (The blur size in pixels.), min=0.0, max=10.0
//	uniform vec2 center = (0.5, 0.5); // Center, min=(0.,0.), max=(1.,1.)
//	// iChannel1: Noise (A noise texture), filter=linear, wrap=clamp
//	// BBox: iChannel0
//
// Discovery is line based and never looks past the end of a line.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// ParseError reports a malformed uniform declaration or directive.
type ParseError struct {
	// Line is the 1-based line number in the shader source.
	Line int

	// Msg describes the problem.
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func parseErrorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// builtinUniforms lists the names provided by the globals block. Declarations of these names in
// user source are dropped instead of being discovered as parameters.
var builtinUniforms = []string{
	"iResolution",
	"iTime",
	"iGlobalTime",
	"iTimeDelta",
	"iFrame",
	"iFrameRate",
	"iChannelTime",
	"iChannelResolution",
	"iMouse",
	"iDate",
	"iSampleRate",
	"iRenderScale",
}

// renderScalePrefix marks the first-line iRenderScale constant some editors prepend to sources.
// The globals block provides iRenderScale, so the line is commented out.
const renderScalePrefix = "const vec2 iRenderScale"

var (
	uniformPattern = regexp.MustCompile(
		`^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*(\[[^\]]*\])?\s*(?:=\s*([^;]*?))?\s*;\s*(?://(.*))?$`)
	channelDirectivePattern = regexp.MustCompile(`^\s*//\s*iChannel(\d+)\s*:(.*)$`)
	bboxDirectivePattern    = regexp.MustCompile(`^\s*//\s*BBox\s*:(.*)$`)
	optionKeyPattern        = regexp.MustCompile(`(?i)\b(min|max|filter|wrap)\s*=`)
	channelUsePattern       = regexp.MustCompile(`\biChannel(\d+)\b`)
	mouseUsePattern         = regexp.MustCompile(`\biMouse\b`)
	blockCommentPattern     = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPattern      = regexp.MustCompile(`//[^\n]*`)
)

// uniformDecl is one uniform declaration line, discovered or not.
type uniformDecl struct {
	line     int
	typeName string
	name     string
	array    bool
	init     string
	comment  string
}

// Discover extracts the parameter schema from shader source.
//
// Every uniform of type bool, int, float, vec2, vec3 or vec4 that is not a builtin becomes a
// descriptor, in declaration order. Uniforms of other types and uniform arrays are left alone.
// A channel is enabled when iChannel<k> appears outside comments; directives for channels at or
// beyond the channel count are ignored.
//
// Parameters:
//   - source: the shader source
//   - channels: the number of input channels
//
// Returns:
//   - *param.Discovery: the discovered schema, with exactly channels inputs
//   - error: a *ParseError for a malformed declaration or directive
func Discover(source string, channels int) (*param.Discovery, error) {
	d := &param.Discovery{
		Inputs: make([]param.InputDescriptor, channels),
		BBox:   param.BBoxDefault,
	}
	for k := range d.Inputs {
		d.Inputs[k] = param.DefaultInput()
	}

	for i, line := range strings.Split(source, "\n") {
		lineNum := i + 1

		if decl, ok := matchUniform(line, lineNum); ok {
			desc, isParam, err := decl.descriptor()
			if err != nil {
				return nil, err
			}
			if isParam {
				d.Params = append(d.Params, desc)
			}
			continue
		}

		if m := channelDirectivePattern.FindStringSubmatch(line); m != nil {
			k, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, parseErrorf(lineNum, "invalid channel number %q", m[1])
			}
			if k >= channels {
				continue
			}
			if err := parseChannelDirective(&d.Inputs[k], m[2], lineNum); err != nil {
				return nil, err
			}
			continue
		}

		if m := bboxDirectivePattern.FindStringSubmatch(line); m != nil {
			b, ok := param.ParseBBox(m[1])
			if !ok {
				return nil, parseErrorf(lineNum, "unknown bbox %q", strings.TrimSpace(m[1]))
			}
			if k, isChannel := b.Channel(); isChannel && k >= channels {
				return nil, parseErrorf(lineNum, "bbox refers to missing channel iChannel%d", k)
			}
			d.BBox = b
		}
	}

	code := stripComments(source)
	for _, m := range channelUsePattern.FindAllStringSubmatch(code, -1) {
		k, err := strconv.Atoi(m[1])
		if err == nil && k < channels {
			d.Inputs[k].Enabled = true
		}
	}
	d.Mouse = mouseUsePattern.MatchString(code)

	return d, nil
}

// matchUniform reports whether line is a single-line uniform declaration.
func matchUniform(line string, lineNum int) (uniformDecl, bool) {
	m := uniformPattern.FindStringSubmatch(line)
	if m == nil {
		return uniformDecl{}, false
	}
	return uniformDecl{
		line:     lineNum,
		typeName: m[1],
		name:     m[2],
		array:    m[3] != "",
		init:     strings.TrimSpace(m[4]),
		comment:  strings.TrimSpace(m[5]),
	}, true
}

// builtin reports whether the declaration names a globals block member.
func (u uniformDecl) builtin() bool {
	return slices.Contains(builtinUniforms, u.name)
}

// descriptor converts the declaration. isParam is false for builtins, arrays and unsupported types.
func (u uniformDecl) descriptor() (param.Descriptor, bool, error) {
	if u.builtin() || u.array {
		return param.Descriptor{}, false, nil
	}
	t, ok := param.ParseUniformType(u.typeName)
	if !ok {
		return param.Descriptor{}, false, nil
	}

	desc := param.Descriptor{Type: t, Name: u.name, Default: param.Zero(t)}
	if u.init != "" {
		v, err := param.ParseValue(t, u.init)
		if err != nil {
			return desc, false, parseErrorf(u.line, "invalid initializer for uniform %s: %v", u.name, err)
		}
		desc.Default = v
	}

	label, options := splitOptions(u.comment)
	desc.Label, desc.Hint = splitLabelHint(label)
	for _, opt := range options {
		switch opt.key {
		case "min", "max":
			if !t.HasRange() {
				continue
			}
			v, err := param.ParseValue(t, opt.value)
			if err != nil {
				return desc, false, parseErrorf(u.line, "invalid %s for uniform %s: %v", opt.key, u.name, err)
			}
			if opt.key == "min" {
				desc.Min = v
			} else {
				desc.Max = v
			}
		default:
			return desc, false, parseErrorf(u.line, "option %q is not valid for uniform %s", opt.key, u.name)
		}
	}
	return desc, true, nil
}

func parseChannelDirective(in *param.InputDescriptor, text string, lineNum int) error {
	label, options := splitOptions(strings.TrimSpace(text))
	in.Label, in.Hint = splitLabelHint(label)
	for _, opt := range options {
		switch opt.key {
		case "filter":
			f, ok := param.ParseFilterMode(opt.value)
			if !ok {
				return parseErrorf(lineNum, "unknown filter %q", opt.value)
			}
			in.Filter = f
		case "wrap":
			w, ok := param.ParseWrapMode(opt.value)
			if !ok {
				return parseErrorf(lineNum, "unknown wrap %q", opt.value)
			}
			in.Wrap = w
		default:
			return parseErrorf(lineNum, "option %q is not valid for a channel", opt.key)
		}
	}
	return nil
}

type option struct {
	key   string
	value string
}

// splitOptions splits "Label (Hint), min=..., max=..." into the label part and key=value options.
// Option values run up to the next key, so vector values may contain commas.
func splitOptions(comment string) (string, []option) {
	locs := optionKeyPattern.FindAllStringSubmatchIndex(comment, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(comment), nil
	}

	label := strings.TrimRight(strings.TrimSpace(comment[:locs[0][0]]), ", ")
	options := make([]option, 0, len(locs))
	for i, loc := range locs {
		end := len(comment)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := strings.TrimRight(strings.TrimSpace(comment[loc[1]:end]), ", ")
		options = append(options, option{
			key:   strings.ToLower(comment[loc[2]:loc[3]]),
			value: value,
		})
	}
	return label, options
}

// splitLabelHint splits "Label (Hint)" into its parts. The hint is the last parenthesized group
// when the text ends with ')'.
func splitLabelHint(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasSuffix(text, ")") {
		return text, ""
	}
	depth := 0
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1 : len(text)-1])
			}
		}
	}
	return text, ""
}

func stripComments(source string) string {
	source = blockCommentPattern.ReplaceAllString(source, " ")
	return lineCommentPattern.ReplaceAllString(source, "")
}
