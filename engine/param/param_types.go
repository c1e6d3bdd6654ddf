package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Descriptor is one uniform discovered in shader source.
// Descriptors are produced fresh on every parse and never mutated afterwards.
type Descriptor struct {
	// Type is the declared uniform type. Default always carries this type.
	Type UniformType

	// Name is the identifier as written in the shader source.
	Name string

	// Label is the display label. An empty label displays as Name.
	Label string

	// Hint is the tooltip text.
	Hint string

	// Default is the declared initializer, or the type's zero when none was given.
	Default Value

	// Min and Max are the declared range bounds. They are typed only when Type.HasRange();
	// otherwise they are UniformTypeNone.
	Min Value
	Max Value
}

// DisplayLabel returns Label, falling back to Name when Label is empty.
func (d Descriptor) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// Normalized returns a copy whose payloads agree with Type: a mistyped default is replaced by
// the type's zero, and bounds are cleared for types without a range.
func (d Descriptor) Normalized() Descriptor {
	if d.Default.Type() != d.Type {
		d.Default = Zero(d.Type)
	}
	if !d.Type.HasRange() {
		d.Min, d.Max = Value{}, Value{}
		return d
	}
	if d.Min.Type() != d.Type {
		d.Min = Zero(UniformTypeNone)
	}
	if d.Max.Type() != d.Type {
		d.Max = Zero(UniformTypeNone)
	}
	return d
}

// FilterMode selects how an input channel is sampled.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
	FilterMipmap
	FilterAnisotropic
)

var filterModeNames = []string{"nearest", "linear", "mipmap", "anisotropic"}

func (f FilterMode) String() string {
	if f >= 0 && int(f) < len(filterModeNames) {
		return filterModeNames[f]
	}
	return fmt.Sprintf("FilterMode(%d)", int(f))
}

// ParseFilterMode parses a filter directive value, case-insensitively.
func ParseFilterMode(s string) (FilterMode, bool) {
	for i, name := range filterModeNames {
		if strings.EqualFold(name, s) {
			return FilterMode(i), true
		}
	}
	return FilterMipmap, false
}

// WrapMode selects how an input channel is addressed outside [0,1].
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
)

var wrapModeNames = []string{"repeat", "clamp", "mirror"}

func (w WrapMode) String() string {
	if w >= 0 && int(w) < len(wrapModeNames) {
		return wrapModeNames[w]
	}
	return fmt.Sprintf("WrapMode(%d)", int(w))
}

// ParseWrapMode parses a wrap directive value, case-insensitively.
func ParseWrapMode(s string) (WrapMode, bool) {
	for i, name := range wrapModeNames {
		if strings.EqualFold(name, s) {
			return WrapMode(i), true
		}
	}
	return WrapRepeat, false
}

// InputDescriptor is the metadata of one input channel (iChannel<k>).
type InputDescriptor struct {
	Enabled bool
	Label   string
	Hint    string
	Filter  FilterMode
	Wrap    WrapMode
}

// DefaultInput returns the metadata of a channel the shader never mentions.
func DefaultInput() InputDescriptor {
	return InputDescriptor{Filter: FilterMipmap, Wrap: WrapRepeat}
}

// BBox selects how the output region is derived from the inputs.
// Values at or above BBoxChannel0 select the region of one channel.
type BBox int

const (
	BBoxDefault BBox = iota
	BBoxFormat
	BBoxUnion
	BBoxIntersection
	BBoxChannel0
)

// BBoxChannel returns the selection for the region of input channel k.
func BBoxChannel(k int) BBox {
	return BBoxChannel0 + BBox(k)
}

// Channel returns the channel index selected, if any.
func (b BBox) Channel() (int, bool) {
	if b < BBoxChannel0 {
		return 0, false
	}
	return int(b - BBoxChannel0), true
}

func (b BBox) String() string {
	switch b {
	case BBoxDefault:
		return "default"
	case BBoxFormat:
		return "format"
	case BBoxUnion:
		return "union"
	case BBoxIntersection:
		return "intersection"
	}
	if k, ok := b.Channel(); ok {
		return "iChannel" + strconv.Itoa(k)
	}
	return fmt.Sprintf("BBox(%d)", int(b))
}

// ParseBBox parses a BBox directive value. Keywords are case-insensitive;
// channels are written iChannel<k>.
func ParseBBox(s string) (BBox, bool) {
	s = strings.TrimSpace(s)
	for _, b := range []BBox{BBoxDefault, BBoxFormat, BBoxUnion, BBoxIntersection} {
		if strings.EqualFold(b.String(), s) {
			return b, true
		}
	}
	if rest, ok := strings.CutPrefix(s, "iChannel"); ok {
		k, err := strconv.Atoi(rest)
		if err == nil && k >= 0 {
			return BBoxChannel(k), true
		}
	}
	return BBoxDefault, false
}

// Discovery is the full result of parsing one shader source.
type Discovery struct {
	// Params lists the discovered uniforms in declaration order. It may be longer than
	// the slot capacity of the consumer.
	Params []Descriptor

	// Inputs holds one entry per input channel, indexed by channel number.
	Inputs []InputDescriptor

	// BBox is the selection declared by a BBox directive, or BBoxDefault.
	BBox BBox

	// Mouse reports whether the shader reads iMouse.
	Mouse bool
}

// Param returns the descriptor with the given name.
func (d *Discovery) Param(name string) (Descriptor, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Descriptor{}, false
}
