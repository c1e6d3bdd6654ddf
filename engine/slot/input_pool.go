package slot

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

type inputPool struct {
	inputs   []param.InputDescriptor
	writes   uint64
	observer Observer
}

// InputPool is a fixed-capacity array of input channel metadata slots, indexed by channel
// number. Like Pool, every setter writes and notifies, and it is not safe for concurrent use.
type InputPool interface {
	// Capacity returns the fixed number of channels.
	Capacity() int

	// Input returns a snapshot of channel i.
	//
	// Parameters:
	//   - i: the channel index
	//
	// Returns:
	//   - InputSnapshot: a copy of the channel metadata
	//   - error: if i is out of range
	Input(i int) (InputSnapshot, error)

	// Snapshots returns a copy of every channel.
	Snapshots() []InputSnapshot

	// SetEnabled enables or disables channel i.
	SetEnabled(i int, enabled bool) error

	// SetLabel sets the label of channel i.
	SetLabel(i int, label string) error

	// SetHint sets the hint of channel i.
	SetHint(i int, hint string) error

	// SetFilter sets the sampling filter of channel i.
	SetFilter(i int, f param.FilterMode) error

	// SetWrap sets the wrap mode of channel i.
	SetWrap(i int, w param.WrapMode) error

	// Reset returns channel i to param.DefaultInput().
	Reset(i int) error

	// Writes returns the number of writes performed since construction.
	Writes() uint64
}

var _ InputPool = &inputPool{}

func (p *inputPool) Capacity() int {
	return len(p.inputs)
}

func (p *inputPool) Input(i int) (InputSnapshot, error) {
	in, err := p.at(i)
	if err != nil {
		return InputSnapshot{}, err
	}
	return InputSnapshot{Index: i, InputDescriptor: *in}, nil
}

func (p *inputPool) Snapshots() []InputSnapshot {
	out := make([]InputSnapshot, len(p.inputs))
	for i, in := range p.inputs {
		out[i] = InputSnapshot{Index: i, InputDescriptor: in}
	}
	return out
}

func (p *inputPool) SetEnabled(i int, enabled bool) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	in.Enabled = enabled
	p.notify(i, FieldInputEnabled)
	return nil
}

func (p *inputPool) SetLabel(i int, label string) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	in.Label = label
	p.notify(i, FieldInputLabel)
	return nil
}

func (p *inputPool) SetHint(i int, hint string) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	in.Hint = hint
	p.notify(i, FieldInputHint)
	return nil
}

func (p *inputPool) SetFilter(i int, f param.FilterMode) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	in.Filter = f
	p.notify(i, FieldInputFilter)
	return nil
}

func (p *inputPool) SetWrap(i int, w param.WrapMode) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	in.Wrap = w
	p.notify(i, FieldInputWrap)
	return nil
}

func (p *inputPool) Reset(i int) error {
	in, err := p.at(i)
	if err != nil {
		return err
	}
	*in = param.DefaultInput()
	p.notify(i, FieldInputEnabled)
	return nil
}

func (p *inputPool) Writes() uint64 {
	return p.writes
}

func (p *inputPool) at(i int) (*param.InputDescriptor, error) {
	if i < 0 || i >= len(p.inputs) {
		return nil, fmt.Errorf("%w: %d (capacity %d)", errSlotIndex, i, len(p.inputs))
	}
	return &p.inputs[i], nil
}

func (p *inputPool) notify(i int, f Field) {
	p.writes++
	if p.observer != nil {
		p.observer(i, f)
	}
}
