package state

import "sync"

// ControllerBuilderOption is a functional option for configuring a controller.
type ControllerBuilderOption func(c *controller)

// WithSource sets the initial shader text. The controller still starts uncompiled.
//
// Parameters:
//   - text: the initial shader source
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithSource(text string) ControllerBuilderOption {
	return func(c *controller) {
		c.source = text
	}
}

// NewController creates a controller at source version 1 and layout version 1, uncompiled,
// with nothing published.
//
// Parameters:
//   - options: functional options for controller configuration
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerBuilderOption) Controller {
	c := &controller{
		mu:            &sync.Mutex{},
		sourceVersion: 1,
		layoutVersion: 1,
	}
	for _, option := range options {
		option(c)
	}
	return c
}
