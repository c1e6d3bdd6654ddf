// Package reconciler writes a discovered parameter schema into the fixed slot pools.
//
// Reconcile compares every field against the pool before writing, so a second call with
// the same discovery performs no writes at all.
package reconciler

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
	"github.com/Carmen-Shannon/oxy-shadertoy/engine/slot"
)

var errNilDiscovery = errors.New("reconciler: nil discovery")

// Result summarizes one reconciliation pass.
type Result struct {
	// Writes is the number of slot pool writes performed.
	Writes int

	// InputWrites is the number of input pool writes performed.
	InputWrites int

	// Dropped is the number of discovered parameters beyond the slot capacity.
	Dropped int

	// DroppedInputs is the number of discovered channels beyond the input capacity.
	DroppedInputs int

	// TypeChanges lists the slots whose type changed.
	TypeChanges []int
}

// Changed reports whether the pass wrote anything.
func (r Result) Changed() bool {
	return r.Writes > 0 || r.InputWrites > 0
}

// Reconcile mutates slots and inputs to match d. It never mutates d.
//
// Slot i takes descriptor i for i < min(len(d.Params), capacity). A type change resets every
// payload of the slot to the build default of the new type before the new default is written,
// and seeds the value with the descriptor default. Slots past the discovered count are reset to
// type none. Channels are matched by index. Descriptors past capacity are dropped silently and
// only counted in the result. inputs may be nil.
//
// Parameters:
//   - d: the discovered schema
//   - slots: the parameter slot pool
//   - inputs: the input channel pool
//
// Returns:
//   - Result: the writes performed and the descriptors dropped
//   - error: if d is nil or a pool rejects a write
func Reconcile(d *param.Discovery, slots slot.Pool, inputs slot.InputPool) (Result, error) {
	if d == nil {
		return Result{}, errNilDiscovery
	}

	var res Result
	n := min(len(d.Params), slots.Capacity())
	res.Dropped = len(d.Params) - n

	for i := 0; i < n; i++ {
		changedType, writes, err := reconcileSlot(slots, i, d.Params[i].Normalized())
		res.Writes += writes
		if err != nil {
			return res, fmt.Errorf("reconciler: slot %d: %w", i, err)
		}
		if changedType {
			res.TypeChanges = append(res.TypeChanges, i)
		}
	}

	for i := n; i < slots.Capacity(); i++ {
		s, err := slots.Slot(i)
		if err != nil {
			return res, err
		}
		if s.Blank() {
			continue
		}
		if s.Type != param.UniformTypeNone {
			res.TypeChanges = append(res.TypeChanges, i)
		}
		if err := slots.Reset(i); err != nil {
			return res, err
		}
		res.Writes++
	}

	if slots.Count() != n {
		if err := slots.SetCount(n); err != nil {
			return res, err
		}
		res.Writes++
	}
	if slots.BBox() != d.BBox {
		slots.SetBBox(d.BBox)
		res.Writes++
	}
	if slots.MouseParams() != d.Mouse {
		slots.SetMouseParams(d.Mouse)
		res.Writes++
	}

	if inputs == nil {
		return res, nil
	}
	m := inputs.Capacity()
	if len(d.Inputs) > m {
		res.DroppedInputs = len(d.Inputs) - m
	}
	for k := 0; k < m; k++ {
		want := param.DefaultInput()
		if k < len(d.Inputs) {
			want = d.Inputs[k]
		}
		writes, err := reconcileInput(inputs, k, want)
		res.InputWrites += writes
		if err != nil {
			return res, fmt.Errorf("reconciler: channel %d: %w", k, err)
		}
	}

	return res, nil
}

// reconcileSlot brings slot i in line with d and returns whether its type changed and how
// many writes were needed.
func reconcileSlot(slots slot.Pool, i int, d param.Descriptor) (bool, int, error) {
	s, err := slots.Slot(i)
	if err != nil {
		return false, 0, err
	}

	writes := 0
	changedType := s.Type != d.Type
	if changedType {
		if err := slots.SetType(i, d.Type); err != nil {
			return false, writes, err
		}
		writes++
		if s, err = slots.Slot(i); err != nil {
			return false, writes, err
		}
	}

	label := d.DisplayLabel()
	steps := []struct {
		differs bool
		write   func() error
	}{
		{s.Name != d.Name, func() error { return slots.SetName(i, d.Name) }},
		{s.Label != label, func() error { return slots.SetLabel(i, label) }},
		{s.Hint != d.Hint, func() error { return slots.SetHint(i, d.Hint) }},
		{s.Default != d.Default, func() error { return slots.SetDefault(i, d.Default) }},
		{s.Min != d.Min, func() error { return slots.SetMin(i, d.Min) }},
		{s.Max != d.Max, func() error { return slots.SetMax(i, d.Max) }},
		{changedType && s.Value != d.Default, func() error { return slots.SetValue(i, d.Default) }},
	}
	for _, step := range steps {
		if !step.differs {
			continue
		}
		if err := step.write(); err != nil {
			return changedType, writes, err
		}
		writes++
	}
	return changedType, writes, nil
}

func reconcileInput(inputs slot.InputPool, k int, want param.InputDescriptor) (int, error) {
	cur, err := inputs.Input(k)
	if err != nil {
		return 0, err
	}

	writes := 0
	steps := []struct {
		differs bool
		write   func() error
	}{
		{cur.Enabled != want.Enabled, func() error { return inputs.SetEnabled(k, want.Enabled) }},
		{cur.Label != want.Label, func() error { return inputs.SetLabel(k, want.Label) }},
		{cur.Hint != want.Hint, func() error { return inputs.SetHint(k, want.Hint) }},
		{cur.Filter != want.Filter, func() error { return inputs.SetFilter(k, want.Filter) }},
		{cur.Wrap != want.Wrap, func() error { return inputs.SetWrap(k, want.Wrap) }},
	}
	for _, step := range steps {
		if !step.differs {
			continue
		}
		if err := step.write(); err != nil {
			return writes, err
		}
		writes++
	}
	return writes, nil
}
