package slot

// SlotVisibility is the derived UI state of one parameter slot.
type SlotVisibility struct {
	Index int

	// Group is true when the slot's group is shown (index below the structural count).
	Group bool

	// Open is true when the group is shown and expanded. Hidden groups are always closed.
	Open bool

	// Label covers the label and hint fields, shown when the slot has a name.
	Label bool

	// Value covers the value and default fields, shown for a live slot in an open group.
	Value bool

	// Range covers min and max, shown like Value but only for types with a range.
	Range bool

	// GroupLabel is the title of the group.
	GroupLabel string

	// ValueLabel is the label shown next to the value field.
	ValueLabel string
}

// InputVisibility is the derived UI state of one input channel.
type InputVisibility struct {
	Index int

	// Settings covers the label, hint, filter and wrap fields, shown when the channel is enabled.
	Settings bool

	// ClipLabel and ClipHint are the label and hint of the input clip.
	ClipLabel string
	ClipHint  string
}

// Projection holds the visibility of every slot and channel.
type Projection struct {
	Slots  []SlotVisibility
	Inputs []InputVisibility
}

// Project derives visibility from the current pool contents. It keeps no state and never
// writes to either pool. inputs may be nil.
//
// Parameters:
//   - slots: the parameter slot pool
//   - inputs: the input channel pool
//
// Returns:
//   - Projection: the visibility of every slot and channel
func Project(slots Pool, inputs InputPool) Projection {
	count := slots.Count()
	snapshots := slots.Snapshots()
	out := Projection{Slots: make([]SlotVisibility, len(snapshots))}

	for i, s := range snapshots {
		group := i < count
		open := group && s.Expanded
		live := open && s.Live()
		out.Slots[i] = SlotVisibility{
			Index:      i,
			Group:      group,
			Open:       open,
			Label:      open && s.Name != "",
			Value:      live,
			Range:      live && s.Type.HasRange(),
			GroupLabel: s.GroupLabel(),
			ValueLabel: s.DisplayLabel(),
		}
	}

	if inputs == nil {
		return out
	}
	channels := inputs.Snapshots()
	out.Inputs = make([]InputVisibility, len(channels))
	for i, in := range channels {
		out.Inputs[i] = InputVisibility{
			Index:     i,
			Settings:  in.Enabled,
			ClipLabel: in.ClipLabel(),
			ClipHint:  in.Hint,
		}
	}
	return out
}
