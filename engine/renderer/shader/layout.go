package shader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// glslTypeLayout holds the std140 size and alignment of a GLSL type.
type glslTypeLayout struct {
	Size  uint64
	Align uint64
}

// glslPrimitiveLayoutMap maps the GLSL scalar and vector types used in uniform blocks to their
// std140 size and alignment.
var glslPrimitiveLayoutMap = map[string]glslTypeLayout{
	"float": {4, 4},
	"int":   {4, 4},
	"uint":  {4, 4},
	"bool":  {4, 4},
	"vec2":  {8, 8},
	"ivec2": {8, 8},
	"vec3":  {12, 16},
	"ivec3": {12, 16},
	"vec4":  {16, 16},
	"ivec4": {16, 16},
}

// Member is one member of a std140 uniform block.
type Member struct {
	// Name is the member identifier in the generated block.
	Name string

	// Type is the GLSL type of the member (or of each element, for arrays).
	Type string

	// Count is the array length, or 0 for a non-array member.
	Count int

	// Offset is the byte offset of the member inside the block.
	Offset uint64

	// Stride is the byte distance between array elements, or 0 for a non-array member.
	Stride uint64
}

// Declaration returns the GLSL member declaration, e.g. "vec3 iChannelResolution[4];".
func (m Member) Declaration() string {
	if m.Count > 0 {
		return fmt.Sprintf("%s %s[%d];", m.Type, m.Name, m.Count)
	}
	return fmt.Sprintf("%s %s;", m.Type, m.Name)
}

// Layout is a resolved std140 uniform block.
type Layout struct {
	Members []Member
	Size    uint64
}

// NewLayout computes std140 offsets for the members in declaration order. Offset and Stride of the
// given members are ignored. The block size is rounded up to 16 bytes.
//
// Parameters:
//   - members: the block members, with Name, Type and Count set
//
// Returns:
//   - Layout: the members with offsets and the total block size
//   - error: if a member type has no std140 layout
func NewLayout(members ...Member) (Layout, error) {
	var offset uint64
	out := make([]Member, len(members))
	for i, m := range members {
		tl, ok := glslPrimitiveLayoutMap[m.Type]
		if !ok {
			return Layout{}, fmt.Errorf("shader: no std140 layout for type %q of member %q", m.Type, m.Name)
		}
		if m.Count > 0 {
			// array elements are padded to vec4 alignment
			m.Stride = roundUpAlign(16, tl.Size)
			offset = roundUpAlign(16, offset)
			m.Offset = offset
			offset += m.Stride * uint64(m.Count)
		} else {
			m.Stride = 0
			offset = roundUpAlign(tl.Align, offset)
			m.Offset = offset
			offset += tl.Size
		}
		out[i] = m
	}
	return Layout{Members: out, Size: roundUpAlign(16, offset)}, nil
}

// Member returns the member with the given name.
func (l Layout) Member(name string) (Member, bool) {
	for _, m := range l.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// paramMemberName is the block member backing discovered parameter i.
func paramMemberName(i int) string {
	return fmt.Sprintf("oxy_param%d", i)
}

// paramMemberType maps a uniform type onto the GLSL type stored in the block. Bools are stored
// as ints.
func paramMemberType(t param.UniformType) string {
	if t == param.UniformTypeBool {
		return "int"
	}
	return t.String()
}

// NewParamLayout builds the block holding one member per discovered parameter. A placeholder
// int member is added when there are no parameters, since GLSL forbids empty blocks.
//
// Parameters:
//   - params: the discovered parameters, in declaration order
//
// Returns:
//   - Layout: the parameter block layout
func NewParamLayout(params []param.Descriptor) Layout {
	members := make([]Member, 0, max(len(params), 1))
	for i, p := range params {
		members = append(members, Member{Name: paramMemberName(i), Type: paramMemberType(p.Type)})
	}
	if len(members) == 0 {
		members = append(members, Member{Name: "oxy_unused", Type: "int"})
	}
	// every parameter type is in the primitive map
	l, _ := NewLayout(members...)
	return l
}

// PackParams encodes one value per member of a layout built by NewParamLayout.
// Values whose type differs from the member's parameter type are encoded as zero.
//
// Parameters:
//   - l: the parameter block layout
//   - params: the descriptors the layout was built from
//   - values: the value of each parameter, in the same order
//
// Returns:
//   - []byte: the block contents, l.Size bytes long
func PackParams(l Layout, params []param.Descriptor, values []param.Value) []byte {
	buf := make([]byte, l.Size)
	for i, p := range params {
		if i >= len(values) || i >= len(l.Members) {
			break
		}
		v := values[i]
		if v.Type() != p.Type {
			continue
		}
		off := l.Members[i].Offset
		switch p.Type {
		case param.UniformTypeBool:
			var b int32
			if v.Bool() {
				b = 1
			}
			putInt32(buf, off, b)
		case param.UniformTypeInt:
			putInt32(buf, off, v.Int())
		default:
			putFloats(buf, off, v.Floats()...)
		}
	}
	return buf
}

func putFloats(buf []byte, offset uint64, values ...float32) {
	for i, f := range values {
		o := offset + uint64(i)*4
		binary.LittleEndian.PutUint32(buf[o:o+4], math.Float32bits(f))
	}
}

func putInt32(buf []byte, offset uint64, v int32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v))
}
