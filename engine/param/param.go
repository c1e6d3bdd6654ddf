package param

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errEmptyLiteral   = errors.New("empty literal")
	errComponentCount = errors.New("wrong number of components")
	errNoneValue      = errors.New("cannot parse a value for type none")
)

// UniformType identifies which payload of a Value or Descriptor is live.
// UniformTypeNone marks an inert slot or an unset range bound.
type UniformType int

const (
	UniformTypeNone UniformType = iota
	UniformTypeBool
	UniformTypeInt
	UniformTypeFloat
	UniformTypeVec2
	UniformTypeVec3
	UniformTypeVec4
)

var uniformTypeNames = map[UniformType]string{
	UniformTypeNone:  "none",
	UniformTypeBool:  "bool",
	UniformTypeInt:   "int",
	UniformTypeFloat: "float",
	UniformTypeVec2:  "vec2",
	UniformTypeVec3:  "vec3",
	UniformTypeVec4:  "vec4",
}

// String returns the GLSL spelling of the type, or "none".
func (t UniformType) String() string {
	if name, ok := uniformTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UniformType(%d)", int(t))
}

// ParseUniformType maps a GLSL type keyword onto a UniformType.
// Only the types a slot can hold are recognized; "none" is not accepted.
//
// Parameters:
//   - s: the GLSL type keyword (e.g. "float", "vec3")
//
// Returns:
//   - UniformType: the parsed type
//   - bool: false when s does not name a supported uniform type
func ParseUniformType(s string) (UniformType, bool) {
	for t, name := range uniformTypeNames {
		if t != UniformTypeNone && name == s {
			return t, true
		}
	}
	return UniformTypeNone, false
}

// Components returns the number of scalar components carried by the type.
func (t UniformType) Components() int {
	switch t {
	case UniformTypeBool, UniformTypeInt, UniformTypeFloat:
		return 1
	case UniformTypeVec2:
		return 2
	case UniformTypeVec3:
		return 3
	case UniformTypeVec4:
		return 4
	default:
		return 0
	}
}

// HasRange reports whether min/max bounds exist for the type.
// Only int, float and vec2 carry a range; vec3 and vec4 do not.
func (t UniformType) HasRange() bool {
	return t == UniformTypeInt || t == UniformTypeFloat || t == UniformTypeVec2
}

// Value is a tagged union holding exactly one uniform payload.
// Accessors for a payload other than the live one return that payload's zero value,
// so a Value can never expose data left over from a previous type.
// Values are comparable with ==.
type Value struct {
	typ UniformType
	b   bool
	i   int32
	v   [4]float32
}

// Zero returns the build-time default payload for the given type.
func Zero(t UniformType) Value {
	return Value{typ: t}
}

// BoolValue returns a bool payload.
func BoolValue(b bool) Value {
	return Value{typ: UniformTypeBool, b: b}
}

// IntValue returns an int payload.
func IntValue(i int32) Value {
	return Value{typ: UniformTypeInt, i: i}
}

// FloatValue returns a float payload.
func FloatValue(f float32) Value {
	return Value{typ: UniformTypeFloat, v: [4]float32{f}}
}

// Vec2Value returns a vec2 payload.
func Vec2Value(x, y float32) Value {
	return Value{typ: UniformTypeVec2, v: [4]float32{x, y}}
}

// Vec3Value returns a vec3 payload.
func Vec3Value(x, y, z float32) Value {
	return Value{typ: UniformTypeVec3, v: [4]float32{x, y, z}}
}

// Vec4Value returns a vec4 payload.
func Vec4Value(x, y, z, w float32) Value {
	return Value{typ: UniformTypeVec4, v: [4]float32{x, y, z, w}}
}

// Type returns the live payload's type.
func (v Value) Type() UniformType { return v.typ }

// IsZero reports whether the payload equals the build default for its type.
func (v Value) IsZero() bool { return v == Zero(v.typ) }

// Bool returns the bool payload, or false when the live payload is not a bool.
func (v Value) Bool() bool {
	if v.typ != UniformTypeBool {
		return false
	}
	return v.b
}

// Int returns the int payload, or 0 when the live payload is not an int.
func (v Value) Int() int32 {
	if v.typ != UniformTypeInt {
		return 0
	}
	return v.i
}

// Float returns the float payload, or 0 when the live payload is not a float.
func (v Value) Float() float32 {
	if v.typ != UniformTypeFloat {
		return 0
	}
	return v.v[0]
}

// Vec2 returns the vec2 payload, or the zero vector when the live payload is not a vec2.
func (v Value) Vec2() [2]float32 {
	if v.typ != UniformTypeVec2 {
		return [2]float32{}
	}
	return [2]float32{v.v[0], v.v[1]}
}

// Vec3 returns the vec3 payload, or the zero vector when the live payload is not a vec3.
func (v Value) Vec3() [3]float32 {
	if v.typ != UniformTypeVec3 {
		return [3]float32{}
	}
	return [3]float32{v.v[0], v.v[1], v.v[2]}
}

// Vec4 returns the vec4 payload, or the zero vector when the live payload is not a vec4.
func (v Value) Vec4() [4]float32 {
	if v.typ != UniformTypeVec4 {
		return [4]float32{}
	}
	return v.v
}

// Floats returns the payload as float32 components, one per component of the type.
// Bool and int payloads are converted (true = 1).
func (v Value) Floats() []float32 {
	switch v.typ {
	case UniformTypeBool:
		if v.b {
			return []float32{1}
		}
		return []float32{0}
	case UniformTypeInt:
		return []float32{float32(v.i)}
	default:
		out := make([]float32, v.typ.Components())
		copy(out, v.v[:])
		return out
	}
}

// String formats the payload the way it would be written in a shader annotation.
func (v Value) String() string {
	switch v.typ {
	case UniformTypeNone:
		return ""
	case UniformTypeBool:
		return strconv.FormatBool(v.b)
	case UniformTypeInt:
		return strconv.FormatInt(int64(v.i), 10)
	case UniformTypeFloat:
		return formatFloat(v.v[0])
	default:
		parts := make([]string, v.typ.Components())
		for i := range parts {
			parts[i] = formatFloat(v.v[i])
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// GLSL formats the payload as a GLSL constant expression of its type.
func (v Value) GLSL() string {
	switch v.typ {
	case UniformTypeBool, UniformTypeInt:
		return v.String()
	case UniformTypeFloat:
		return glslFloat(v.v[0])
	case UniformTypeVec2, UniformTypeVec3, UniformTypeVec4:
		parts := make([]string, v.typ.Components())
		for i := range parts {
			parts[i] = glslFloat(v.v[i])
		}
		return v.typ.String() + "(" + strings.Join(parts, ", ") + ")"
	default:
		return ""
	}
}

// ParseValue parses a literal of the given type. Accepted forms:
//   - bool: true, false, 1, 0
//   - int: decimal integers; a float literal with no fractional part is accepted
//   - float: any float literal, with an optional trailing "f"
//   - vectors: "(x, y)", "vec2(x, y)", "x, y" or a single scalar broadcast to every component
//
// Parameters:
//   - t: the expected type
//   - s: the literal text
//
// Returns:
//   - Value: the parsed payload
//   - error: when the literal does not match the type
func ParseValue(t UniformType, s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, errEmptyLiteral
	}

	switch t {
	case UniformTypeBool:
		switch s {
		case "true", "1":
			return BoolValue(true), nil
		case "false", "0":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("invalid bool literal %q", s)
	case UniformTypeInt:
		if i, err := strconv.ParseInt(s, 10, 32); err == nil {
			return IntValue(int32(i)), nil
		}
		f, err := parseFloat(s)
		if err != nil || f != float32(int32(f)) {
			return Value{}, fmt.Errorf("invalid int literal %q", s)
		}
		return IntValue(int32(f)), nil
	case UniformTypeFloat:
		f, err := parseFloat(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float literal %q: %w", s, err)
		}
		return FloatValue(f), nil
	case UniformTypeVec2, UniformTypeVec3, UniformTypeVec4:
		comps, err := parseVector(t, s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s literal %q: %w", t, s, err)
		}
		out := Value{typ: t}
		copy(out.v[:], comps)
		return out, nil
	default:
		return Value{}, errNoneValue
	}
}

func parseVector(t UniformType, s string) ([]float32, error) {
	s = strings.TrimPrefix(s, t.String())
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	fields := strings.Split(s, ",")
	n := t.Components()
	out := make([]float32, n)
	switch len(fields) {
	case 1:
		f, err := parseFloat(fields[0])
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = f
		}
	case n:
		for i, field := range fields {
			f, err := parseFloat(field)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
	default:
		return nil, errComponentCount
	}
	return out, nil
}

func parseFloat(s string) (float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "f"), "F")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func glslFloat(f float32) string {
	s := formatFloat(f)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
