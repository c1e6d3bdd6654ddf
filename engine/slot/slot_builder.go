package slot

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadertoy/engine/param"
)

// DefaultCapacity is the number of parameter slots a pool gets when no capacity is given.
const DefaultCapacity = 16

// DefaultChannels is the number of input channels an input pool gets when no capacity is given.
const DefaultChannels = 4

// PoolBuilderOption is a functional option for configuring a pool.
// Use the With* functions to create options.
type PoolBuilderOption func(p *pool)

// WithCapacity sets the fixed number of parameter slots.
//
// Parameters:
//   - n: the slot capacity; must be positive
//
// Returns:
//   - PoolBuilderOption: option function to apply
func WithCapacity(n int) PoolBuilderOption {
	return func(p *pool) {
		if n <= 0 {
			panic(fmt.Sprintf("slot: invalid capacity: %d", n))
		}
		p.slots = make([]slotState, n)
	}
}

// WithObserver registers a function notified after every write to the pool.
//
// Parameters:
//   - observer: the change observer
//
// Returns:
//   - PoolBuilderOption: option function to apply
func WithObserver(observer Observer) PoolBuilderOption {
	return func(p *pool) {
		p.observer = observer
	}
}

// NewPool creates a parameter slot pool. Every slot starts at type none with its group expanded.
//
// Parameters:
//   - options: functional options for pool configuration
//
// Returns:
//   - Pool: the newly created pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &pool{
		slots: make([]slotState, DefaultCapacity),
		bbox:  param.BBoxDefault,
	}
	for _, option := range options {
		option(p)
	}
	for i := range p.slots {
		p.slots[i].expanded = true
	}
	return p
}

// InputPoolBuilderOption is a functional option for configuring an inputPool.
type InputPoolBuilderOption func(p *inputPool)

// WithChannels sets the fixed number of input channels.
//
// Parameters:
//   - m: the channel capacity; must be positive
//
// Returns:
//   - InputPoolBuilderOption: option function to apply
func WithChannels(m int) InputPoolBuilderOption {
	return func(p *inputPool) {
		if m <= 0 {
			panic(fmt.Sprintf("slot: invalid channel count: %d", m))
		}
		p.inputs = make([]param.InputDescriptor, m)
	}
}

// WithInputObserver registers a function notified after every write to the input pool.
//
// Parameters:
//   - observer: the change observer
//
// Returns:
//   - InputPoolBuilderOption: option function to apply
func WithInputObserver(observer Observer) InputPoolBuilderOption {
	return func(p *inputPool) {
		p.observer = observer
	}
}

// NewInputPool creates an input channel pool with every channel at param.DefaultInput().
//
// Parameters:
//   - options: functional options for input pool configuration
//
// Returns:
//   - InputPool: the newly created input pool
func NewInputPool(options ...InputPoolBuilderOption) InputPool {
	p := &inputPool{
		inputs: make([]param.InputDescriptor, DefaultChannels),
	}
	for _, option := range options {
		option(p)
	}
	for i := range p.inputs {
		p.inputs[i] = param.DefaultInput()
	}
	return p
}
