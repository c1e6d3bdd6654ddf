package slot

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

var (
	errSlotIndex    = errors.New("slot index out of range")
	errTypeMismatch = errors.New("payload type does not match slot type")
	errNoRange      = errors.New("slot type has no range")
	errCount        = errors.New("count out of range")
)

// slotState holds one slot. Every payload carries the slot's type, except the range
// bounds of types without a range, which stay untyped.
type slotState struct {
	typ      param.UniformType
	name     string
	label    string
	hint     string
	value    param.Value
	def      param.Value
	min      param.Value
	max      param.Value
	expanded bool
}

type pool struct {
	slots    []slotState
	count    int
	bbox     param.BBox
	mouse    bool
	writes   uint64
	observer Observer
}

// Pool is a fixed-capacity array of pre-declared parameter slots. A slot can hold any
// uniform type, but only the payloads of its current type are ever live.
//
// Every setter performs a write and notifies the observer, even when the new value equals
// the current one, the same way a host parameter would. Callers that need minimal writes
// compare against Slot() first.
//
// A Pool is not safe for concurrent use.
type Pool interface {
	// Capacity returns the fixed number of slots.
	Capacity() int

	// Count returns the structural parameter count.
	Count() int

	// SetCount sets the structural parameter count.
	//
	// Parameters:
	//   - n: the count, in 0..Capacity()
	//
	// Returns:
	//   - error: if n is out of range
	SetCount(n int) error

	// Slot returns a snapshot of slot i.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - Snapshot: a copy of the slot
	//   - error: if i is out of range
	Slot(i int) (Snapshot, error)

	// Snapshots returns a copy of every slot.
	Snapshots() []Snapshot

	// SetType changes the type of slot i and resets its value and default to the build
	// defaults of the new type and clears min and max. Setting the current type again still
	// resets the payloads.
	//
	// Parameters:
	//   - i: the slot index
	//   - t: the new type
	//
	// Returns:
	//   - error: if i is out of range
	SetType(i int, t param.UniformType) error

	// SetName sets the uniform name of slot i.
	SetName(i int, name string) error

	// SetLabel sets the display label of slot i.
	SetLabel(i int, label string) error

	// SetHint sets the hint of slot i.
	SetHint(i int, hint string) error

	// SetDefault sets the default payload of slot i. The payload must carry the slot's type.
	SetDefault(i int, v param.Value) error

	// SetMin sets the lower bound of slot i. The slot type must have a range and the payload
	// must carry the slot's type, or be untyped to clear the bound.
	SetMin(i int, v param.Value) error

	// SetMax sets the upper bound of slot i, with the same rules as SetMin.
	SetMax(i int, v param.Value) error

	// SetValue sets the current value of slot i. The payload must carry the slot's type.
	SetValue(i int, v param.Value) error

	// SetExpanded opens or closes the group of slot i.
	SetExpanded(i int, expanded bool) error

	// Reset returns slot i to type none with empty strings and untyped payloads.
	// The expanded state is kept.
	Reset(i int) error

	// BBox returns the bounding box selection.
	BBox() param.BBox

	// SetBBox sets the bounding box selection.
	SetBBox(b param.BBox)

	// MouseParams reports whether the mouse parameters feed iMouse.
	MouseParams() bool

	// SetMouseParams enables or disables the mouse parameters.
	SetMouseParams(enabled bool)

	// Writes returns the number of writes performed since construction.
	Writes() uint64
}

var _ Pool = &pool{}

func (p *pool) Capacity() int {
	return len(p.slots)
}

func (p *pool) Count() int {
	return p.count
}

func (p *pool) SetCount(n int) error {
	if n < 0 || n > len(p.slots) {
		return fmt.Errorf("%w: %d", errCount, n)
	}
	p.count = n
	p.notify(-1, FieldCount)
	return nil
}

func (p *pool) Slot(i int) (Snapshot, error) {
	s, err := p.at(i)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(i), nil
}

func (p *pool) Snapshots() []Snapshot {
	out := make([]Snapshot, len(p.slots))
	for i := range p.slots {
		out[i] = p.slots[i].snapshot(i)
	}
	return out
}

func (p *pool) SetType(i int, t param.UniformType) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	s.typ = t
	s.value = param.Zero(t)
	s.def = param.Zero(t)
	s.min, s.max = param.Value{}, param.Value{}
	p.notify(i, FieldType)
	return nil
}

func (p *pool) SetName(i int, name string) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	s.name = name
	p.notify(i, FieldName)
	return nil
}

func (p *pool) SetLabel(i int, label string) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	s.label = label
	p.notify(i, FieldLabel)
	return nil
}

func (p *pool) SetHint(i int, hint string) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	s.hint = hint
	p.notify(i, FieldHint)
	return nil
}

func (p *pool) SetDefault(i int, v param.Value) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	if v.Type() != s.typ {
		return fmt.Errorf("%w: slot %d is %s, default is %s", errTypeMismatch, i, s.typ, v.Type())
	}
	s.def = v
	p.notify(i, FieldDefault)
	return nil
}

func (p *pool) SetMin(i int, v param.Value) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	if err := checkBound(i, s.typ, v); err != nil {
		return err
	}
	s.min = v
	p.notify(i, FieldMin)
	return nil
}

func (p *pool) SetMax(i int, v param.Value) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	if err := checkBound(i, s.typ, v); err != nil {
		return err
	}
	s.max = v
	p.notify(i, FieldMax)
	return nil
}

func (p *pool) SetValue(i int, v param.Value) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	if v.Type() != s.typ {
		return fmt.Errorf("%w: slot %d is %s, value is %s", errTypeMismatch, i, s.typ, v.Type())
	}
	s.value = v
	p.notify(i, FieldValue)
	return nil
}

func (p *pool) SetExpanded(i int, expanded bool) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	s.expanded = expanded
	p.notify(i, FieldExpanded)
	return nil
}

func (p *pool) Reset(i int) error {
	s, err := p.at(i)
	if err != nil {
		return err
	}
	*s = slotState{expanded: s.expanded}
	p.notify(i, FieldType)
	return nil
}

func (p *pool) BBox() param.BBox {
	return p.bbox
}

func (p *pool) SetBBox(b param.BBox) {
	p.bbox = b
	p.notify(-1, FieldBBox)
}

func (p *pool) MouseParams() bool {
	return p.mouse
}

func (p *pool) SetMouseParams(enabled bool) {
	p.mouse = enabled
	p.notify(-1, FieldMouse)
}

func (p *pool) Writes() uint64 {
	return p.writes
}

func (p *pool) at(i int) (*slotState, error) {
	if i < 0 || i >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d (capacity %d)", errSlotIndex, i, len(p.slots))
	}
	return &p.slots[i], nil
}

func (p *pool) notify(i int, f Field) {
	p.writes++
	if p.observer != nil {
		p.observer(i, f)
	}
}

func (s *slotState) snapshot(i int) Snapshot {
	return Snapshot{
		Index:    i,
		Type:     s.typ,
		Name:     s.name,
		Label:    s.label,
		Hint:     s.hint,
		Value:    s.value,
		Default:  s.def,
		Min:      s.min,
		Max:      s.max,
		Expanded: s.expanded,
	}
}

func checkBound(i int, t param.UniformType, v param.Value) error {
	if v.Type() == param.UniformTypeNone {
		return nil
	}
	if !t.HasRange() {
		return fmt.Errorf("%w: slot %d is %s", errNoRange, i, t)
	}
	if v.Type() != t {
		return fmt.Errorf("%w: slot %d is %s, bound is %s", errTypeMismatch, i, t, v.Type())
	}
	return nil
}
