package slavemem

import (
	"log"
	"reflect"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/tracing"
)

// readMiddleware runs the read engine of every port group. Each group
// serves two stages per cycle: data generation and command acceptance. A
// generated beat is a snapshot. It is held unchanged until the initiator
// accepts it, no matter how the store or the error maps move underneath.
type readMiddleware struct {
	*Comp
}

func (m *readMiddleware) Tick() bool {
	madeProgress := false

	for _, g := range m.groups {
		if g.readFaulted {
			continue
		}

		madeProgress = m.emitData(g) || madeProgress
		madeProgress = m.acceptCmd(g) || madeProgress
	}

	return madeProgress
}

// emitData generates the next beat of the head burst when none is held,
// then presents the held beat until the initiator accepts it. Acceptance
// applies the clear-on-access policy and advances the burst.
func (m *readMiddleware) emitData(g *portGroup) bool {
	if g.heldReadRsp == nil && !m.generateBeat(g) {
		return false
	}

	rsp := g.heldReadRsp
	if err := g.readDataPort.Send(rsp); err != nil {
		if !g.readDataBlocked {
			tracing.AddMilestone(m.burstTaskID(rsp.RespondTo),
				tracing.MilestoneKindNetworkTransfer, "data_blocked", m)
			g.readDataBlocked = true
		}

		return false
	}

	g.readDataBlocked = false

	for _, addr := range g.heldReadAddrs {
		m.ReadErrors.Observe(addr)
	}

	req := g.pendingReads[0]

	g.readMonCaptured = MonitorEvent{
		Valid:     true,
		Address:   g.heldReadAddr,
		Data:      append([]byte(nil), rsp.Data...),
		TransID:   req.TransID,
		User:      req.User,
		BeatIndex: rsp.BeatIndex,
		Last:      rsp.Last,
	}

	tracing.AddTaskStep(m.burstTaskID(req.ID), m, "read_beat")

	if rsp.Last {
		g.pendingReads = g.pendingReads[1:]
		g.readBeatIndex = 0

		tracing.EndTask(m.burstTaskID(req.ID), m)
	} else {
		g.readBeatIndex++
	}

	g.heldReadRsp = nil
	g.heldReadAddr = 0
	g.heldReadAddrs = nil

	return true
}

// generateBeat resolves the data and the response code of the head burst's
// current beat. Each beat resolves its own response. There is no cross-beat
// aggregation on the read side.
func (m *readMiddleware) generateBeat(g *portGroup) bool {
	if len(g.pendingReads) == 0 {
		return false
	}

	req := g.pendingReads[0]
	i := g.readBeatIndex

	addr := bus.BeatAddress(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, i)
	low, high := bus.BeatLanes(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, m.busBytes, i)

	data := make([]byte, m.busBytes)
	resp := bus.RespOkay
	touched := make([]uint64, 0, high-low+1)

	for lane := low; lane <= high; lane++ {
		byteAddr := addr + uint64(lane-low)

		v, known, err := m.Storage.ReadByte(byteAddr)
		if err != nil {
			resp = bus.Combine(resp, bus.RespDecodeErr)
			continue
		}

		if !known {
			v = m.uninitValue()

			if m.warnOnUninit {
				log.Printf("%s: read of uninitialized address 0x%x",
					m.Name(), byteAddr)
			}
		}

		if lane < len(data) {
			data[lane] = v
		}

		resp = bus.Combine(resp, m.ReadErrors.Peek(byteAddr))
		touched = append(touched, byteAddr)
	}

	g.heldReadRsp = bus.ReadDataRspBuilder{}.
		WithSrc(g.readDataPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		WithTransID(req.TransID).
		WithUser(req.User).
		WithResp(resp).
		WithBeatIndex(i).
		WithLast(i == req.BeatCount-1).
		Build()
	g.heldReadAddr = addr
	g.heldReadAddrs = touched

	return true
}

// acceptCmd accepts one read burst descriptor, unless the component is
// disabled.
func (m *readMiddleware) acceptCmd(g *portGroup) bool {
	if !m.enabled {
		return false
	}

	item := g.readCmdPort.PeekIncoming()
	if item == nil {
		return false
	}

	req, ok := item.(*bus.ReadBurstReq)
	if !ok {
		log.Panicf("cannot handle message of type %s on %s",
			reflect.TypeOf(item), g.readCmdPort.Name())
	}

	g.readCmdPort.RetrieveIncoming()

	if reason, broken := m.burstParamsBroken(req); broken {
		m.latchReadFault(g, reason)
		return true
	}

	g.pendingReads = append(g.pendingReads, req)

	tracing.StartTaskWithSpecificLocation(
		m.burstTaskID(req.ID),
		req.ID+"_req_out",
		m,
		"burst",
		"read",
		m.portLocation(g),
		req,
	)

	return true
}
