package slot

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// Field identifies one host-visible field of a slot, an input channel, or the pool itself.
// It is passed to change observers and to the session's user-edit entry point.
type Field int

const (
	FieldCount Field = iota
	FieldType
	FieldName
	FieldLabel
	FieldHint
	FieldDefault
	FieldMin
	FieldMax
	FieldValue
	FieldExpanded
	FieldBBox
	FieldMouse
	FieldInputEnabled
	FieldInputLabel
	FieldInputHint
	FieldInputFilter
	FieldInputWrap
)

var fieldNames = map[Field]string{
	FieldCount:        "count",
	FieldType:         "type",
	FieldName:         "name",
	FieldLabel:        "label",
	FieldHint:         "hint",
	FieldDefault:      "default",
	FieldMin:          "min",
	FieldMax:          "max",
	FieldValue:        "value",
	FieldExpanded:     "expanded",
	FieldBBox:         "bbox",
	FieldMouse:        "mouse",
	FieldInputEnabled: "input_enabled",
	FieldInputLabel:   "input_label",
	FieldInputHint:    "input_hint",
	FieldInputFilter:  "input_filter",
	FieldInputWrap:    "input_wrap",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// Structural reports whether an edit of the field changes the identity of the discovered
// schema (parameter count, name, or declared type).
func (f Field) Structural() bool {
	return f == FieldCount || f == FieldName || f == FieldType
}

// Observer is notified after every write to a pool. index is -1 for pool-wide fields.
type Observer func(index int, field Field)

// Snapshot is a read-only copy of one parameter slot.
type Snapshot struct {
	Index    int
	Type     param.UniformType
	Name     string
	Label    string
	Hint     string
	Value    param.Value
	Default  param.Value
	Min      param.Value
	Max      param.Value
	Expanded bool
}

// Live reports whether the slot currently represents a uniform.
func (s Snapshot) Live() bool {
	return s.Type != param.UniformTypeNone && s.Name != ""
}

// Blank reports whether every reconciled field is at its reset state.
func (s Snapshot) Blank() bool {
	return s.Type == param.UniformTypeNone &&
		s.Name == "" && s.Label == "" && s.Hint == "" &&
		s.Value == param.Value{} && s.Default == param.Value{} &&
		s.Min == param.Value{} && s.Max == param.Value{}
}

// DisplayLabel returns the label, falling back to the name.
func (s Snapshot) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// GroupLabel returns the label of the slot's group: the name, or Param<i> for an unnamed slot.
func (s Snapshot) GroupLabel() string {
	if s.Name != "" {
		return s.Name
	}
	return "Param" + strconv.Itoa(s.Index)
}

// InputSnapshot is a read-only copy of one input channel slot.
type InputSnapshot struct {
	Index int
	param.InputDescriptor
}

// ClipLabel returns the label of the input clip: the channel label, or iChannel<k>.
func (s InputSnapshot) ClipLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return "iChannel" + strconv.Itoa(s.Index)
}
