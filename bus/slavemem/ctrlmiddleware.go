package slavemem

import (
	"log"
	"reflect"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/sim"
)

// ctrlMiddleware serves the control port. Control messages gate the
// command-accept stages of all port groups. In-flight bursts keep draining
// while the component is disabled.
type ctrlMiddleware struct {
	*Comp
}

func (m *ctrlMiddleware) Tick() bool {
	madeProgress := m.sendRsps()
	madeProgress = m.processCtrlMsg() || madeProgress

	return madeProgress
}

func (m *ctrlMiddleware) processCtrlMsg() bool {
	item := m.CtrlPort.PeekIncoming()
	if item == nil {
		return false
	}

	msg, ok := item.(*bus.ControlMsg)
	if !ok {
		log.Panicf("cannot handle message of type %s on %s",
			reflect.TypeOf(item), m.CtrlPort.Name())
	}

	m.CtrlPort.RetrieveIncoming()

	m.enabled = msg.Enable

	rsp := sim.GeneralRspBuilder{}.
		WithSrc(m.CtrlPort.AsRemote()).
		WithDst(msg.Src).
		WithOriginalReq(msg).
		Build()
	m.pendingCtrlRsps = append(m.pendingCtrlRsps, rsp)

	return true
}

func (m *ctrlMiddleware) sendRsps() bool {
	if len(m.pendingCtrlRsps) == 0 {
		return false
	}

	if err := m.CtrlPort.Send(m.pendingCtrlRsps[0]); err != nil {
		return false
	}

	m.pendingCtrlRsps = m.pendingCtrlRsps[1:]

	return true
}
