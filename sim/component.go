package sim

import "sync"

// A Named object carries a name.
type Named interface {
	Name() string
}

// A Component is an element of the simulated system. It handles the events
// it schedules for itself and exchanges messages with other components
// through its ports.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	// NotifyRecv is called when a message arrives at one of the component's
	// ports.
	NotifyRecv(port Port)

	// NotifyPortFree is called when one of the component's ports becomes
	// free to send again.
	NotifyPortFree(port Port)
}

// ComponentBase provides the bookkeeping that all components need.
type ComponentBase struct {
	HookableBase
	PortOwnerBase
	sync.Mutex

	name string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.PortOwnerBase = MakePortOwnerBase()

	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
