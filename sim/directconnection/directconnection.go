// Package directconnection provides a connection that can deliver a message
// in one cycle.
package directconnection

import (
	"github.com/sarchlab/membus/sim"
)

// Comp is a connection that delivers messages to any of the plugged-in ports
// within one cycle.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	ports        []sim.Port
	portByRemote map[sim.RemotePort]sim.Port

	nextPortID int
}

// PlugIn connects a port to this connection.
func (c *Comp) PlugIn(port sim.Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portByRemote[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug removes a port from this connection.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *Comp) NotifyAvailable(p sim.Port) {
	for _, port := range c.ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port to notify that the port has a message to
// send.
func (c *Comp) NotifySend() {
	c.TickNow()
}

// Tick runs the middlewares of the connection.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

type middleware struct {
	*Comp
}

// Tick forwards messages from the outgoing buffers of the plugged-in ports
// to the incoming buffers of the destination ports.
func (m *middleware) Tick() bool {
	madeProgress := false

	for i := 0; i < len(m.ports); i++ {
		portID := (i + m.nextPortID) % len(m.ports)
		port := m.ports[portID]
		madeProgress = m.forwardMany(port) || madeProgress
	}

	m.nextPortID = (m.nextPortID + 1) % len(m.ports)

	return madeProgress
}

func (m *middleware) forwardMany(port sim.Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := m.mustFindDstPort(head.Meta().Dst)

		err := dst.Deliver(head)
		if err != nil {
			break
		}

		madeProgress = true
		port.RetrieveOutgoing()
	}

	return madeProgress
}

func (m *middleware) mustFindDstPort(dst sim.RemotePort) sim.Port {
	port, found := m.portByRemote[dst]
	if !found {
		panic("port " + string(dst) + " is not connected to " + m.Name())
	}

	return port
}
