package slavemem

import (
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/tracing"
)

// writeMiddleware runs the write engine of every port group. Each group
// serves three stages per cycle: response emission, data-beat acceptance,
// and command acceptance. The stages couple only through the group's FIFO
// queues, so a stalled initiator stalls exactly the stage it withholds its
// handshake from.
type writeMiddleware struct {
	*Comp
}

func (m *writeMiddleware) Tick() bool {
	madeProgress := false

	for _, g := range m.groups {
		if g.writeFaulted {
			continue
		}

		madeProgress = m.emitRsp(g) || madeProgress
		madeProgress = m.acceptData(g) || madeProgress

		if g.writeFaulted {
			continue
		}

		madeProgress = m.acceptCmd(g) || madeProgress
	}

	return madeProgress
}

// emitRsp presents the oldest completed write response and holds it until
// the initiator accepts it.
func (m *writeMiddleware) emitRsp(g *portGroup) bool {
	if len(g.pendingWriteRsps) == 0 {
		return false
	}

	rsp := g.pendingWriteRsps[0]
	if err := g.writeRspPort.Send(rsp); err != nil {
		if !g.writeRspBlocked {
			tracing.AddMilestone(m.burstTaskID(rsp.RespondTo),
				tracing.MilestoneKindNetworkTransfer, "rsp_blocked", m)
			g.writeRspBlocked = true
		}

		return false
	}

	g.pendingWriteRsps = g.pendingWriteRsps[1:]
	g.writeRspBlocked = false

	tracing.EndTask(m.burstTaskID(rsp.RespondTo), m)

	return true
}

// acceptData consumes one data beat of the head burst, writing the strobed
// bytes into the store and folding their injected error codes into the
// burst's aggregate response.
func (m *writeMiddleware) acceptData(g *portGroup) bool {
	if len(g.pendingWrites) == 0 {
		return false
	}

	item := g.writeDataPort.PeekIncoming()
	if item == nil {
		return false
	}

	beat, ok := item.(*bus.WriteBeatMsg)
	if !ok {
		log.Panicf("cannot handle message of type %s on %s",
			reflect.TypeOf(item), g.writeDataPort.Name())
	}

	g.writeDataPort.RetrieveIncoming()

	req := g.pendingWrites[0]
	lastExpected := g.writeBeatsSeen == req.BeatCount-1

	if beat.Last != lastExpected {
		m.latchWriteFault(g, fmt.Sprintf(
			"beat %d of transaction %d carries last=%v while the burst "+
				"declares %d beats",
			g.writeBeatsSeen, req.TransID, beat.Last, req.BeatCount))

		return true
	}

	m.commitBeat(g, req, beat)
	tracing.AddTaskStep(m.burstTaskID(req.ID), m, "write_beat")

	g.writeBeatsSeen++

	if beat.Last {
		m.completeBurst(g, req)
	}

	return true
}

func (m *writeMiddleware) commitBeat(
	g *portGroup,
	req *bus.WriteBurstReq,
	beat *bus.WriteBeatMsg,
) {
	addr := bus.BeatAddress(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, g.writeBeatsSeen)
	low, high := bus.BeatLanes(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, m.busBytes, g.writeBeatsSeen)

	for lane := low; lane <= high; lane++ {
		if lane >= len(beat.Strobe) || !beat.Strobe[lane] {
			continue
		}

		var v byte
		if lane < len(beat.Data) {
			v = beat.Data[lane]
		}

		byteAddr := addr + uint64(lane-low)

		if err := m.Storage.WriteByte(byteAddr, v); err != nil {
			g.writeResp = bus.Combine(g.writeResp, bus.RespDecodeErr)
			continue
		}

		g.writeResp = bus.Combine(g.writeResp,
			m.WriteErrors.Observe(byteAddr))
	}

	g.writeMonCaptured = MonitorEvent{
		Valid:     true,
		Address:   addr,
		Data:      append([]byte(nil), beat.Data...),
		TransID:   req.TransID,
		User:      req.User,
		BeatIndex: g.writeBeatsSeen,
		Last:      beat.Last,
	}
}

func (m *writeMiddleware) completeBurst(g *portGroup, req *bus.WriteBurstReq) {
	rsp := bus.WriteDoneRspBuilder{}.
		WithSrc(g.writeRspPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithTransID(req.TransID).
		WithUser(req.User).
		WithResp(g.writeResp).
		Build()

	g.pendingWriteRsps = append(g.pendingWriteRsps, rsp)
	g.pendingWrites = g.pendingWrites[1:]
	g.writeResp = bus.RespOkay
	g.writeBeatsSeen = 0
}

// acceptCmd accepts one write burst descriptor, unless the component is
// disabled.
func (m *writeMiddleware) acceptCmd(g *portGroup) bool {
	if !m.enabled {
		return false
	}

	item := g.writeCmdPort.PeekIncoming()
	if item == nil {
		return false
	}

	req, ok := item.(*bus.WriteBurstReq)
	if !ok {
		log.Panicf("cannot handle message of type %s on %s",
			reflect.TypeOf(item), g.writeCmdPort.Name())
	}

	g.writeCmdPort.RetrieveIncoming()

	if reason, broken := m.burstParamsBroken(req); broken {
		m.latchWriteFault(g, reason)
		return true
	}

	g.pendingWrites = append(g.pendingWrites, req)

	tracing.StartTaskWithSpecificLocation(
		m.burstTaskID(req.ID),
		req.ID+"_req_out",
		m,
		"burst",
		"write",
		m.portLocation(g),
		req,
	)

	return true
}
