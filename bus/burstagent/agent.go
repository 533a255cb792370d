// Package burstagent provides a traffic generator for exercising burst-bus
// slaves. The agent issues randomized write and read bursts against one port
// group, keeps a mirror of every byte it has committed, and panics as soon
// as a response disagrees with the mirror, so acceptance tests fail loudly
// at the first protocol break.
package burstagent

import (
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/sim"
)

var dumpLog = false

var modes = []bus.BurstMode{bus.BurstFixed, bus.BurstIncr, bus.BurstWrap}

// A burstShape is the descriptor of one burst, kept so the agent can read
// the same window back later.
type burstShape struct {
	addr  uint64
	size  int
	count int
	mode  bus.BurstMode
}

// An addrRange is an inclusive range of byte addresses.
type addrRange struct {
	lo, hi uint64
}

func (r addrRange) overlaps(o addrRange) bool {
	return r.lo <= o.hi && o.lo <= r.hi
}

// touchedRange returns the address range a burst can touch. For wrapping
// bursts this is the whole container.
func touchedRange(shape burstShape) addrRange {
	span := uint64(shape.size * shape.count)

	switch shape.mode {
	case bus.BurstFixed:
		return addrRange{
			lo: shape.addr,
			hi: shape.addr + uint64(shape.size) - 1,
		}
	case bus.BurstIncr:
		return addrRange{lo: shape.addr, hi: shape.addr + span - 1}
	case bus.BurstWrap:
		lo := shape.addr / span * span
		return addrRange{lo: lo, hi: lo + span - 1}
	}

	log.Panicf("burst mode %d is not supported", shape.mode)

	return addrRange{}
}

// A writeFlight tracks one write burst from issue to acknowledgement.
type writeFlight struct {
	req      *bus.WriteBurstReq
	data     [][]byte
	strobe   [][]bool
	nextBeat int
}

// A readFlight tracks one read burst awaiting its data beats.
type readFlight struct {
	req      *bus.ReadBurstReq
	nextBeat int
}

// A ProgressSink receives one update per retired burst.
type ProgressSink interface {
	IncrementFinished(amount uint64)
}

// An Agent is a component that generates randomized write and read bursts
// against one port group of a slave and validates every response it gets
// back.
type Agent struct {
	*sim.TickingComponent

	// The slave-side channel ports of the group the agent drives.
	SlaveWriteCmd  sim.RemotePort
	SlaveWriteData sim.RemotePort
	SlaveReadCmd   sim.RemotePort

	MaxAddress uint64
	WritesLeft int
	ReadsLeft  int

	// Progress, when set, is told about every retired burst.
	Progress ProgressSink

	writePort sim.Port
	readPort  sim.Port

	busBytes int
	maxBeats int
	rng      *rand.Rand

	currentWrite   *writeFlight
	pendingWrites  map[string]*writeFlight
	pendingReads   map[string]*readFlight
	inflightWrites map[string]addrRange
	inflightReads  map[string]addrRange

	mirror      map[uint64]byte
	knownBursts []burstShape

	nextTransID uint64
}

// Tick retires arrived responses and keeps the channels busy.
func (a *Agent) Tick() bool {
	madeProgress := a.processWriteRsp()
	madeProgress = a.processReadRsp() || madeProgress
	madeProgress = a.streamBeats() || madeProgress
	madeProgress = a.issueWrite() || madeProgress
	madeProgress = a.issueRead() || madeProgress

	return madeProgress
}

// Done tells if all traffic has been issued and acknowledged.
func (a *Agent) Done() bool {
	return a.WritesLeft == 0 && a.ReadsLeft == 0 &&
		a.currentWrite == nil &&
		len(a.pendingWrites) == 0 && len(a.pendingReads) == 0
}

func (a *Agent) processWriteRsp() bool {
	item := a.writePort.RetrieveIncoming()
	if item == nil {
		return false
	}

	rsp, ok := item.(*bus.WriteDoneRsp)
	if !ok {
		log.Panicf("cannot process message of type %s", reflect.TypeOf(item))
	}

	flight, found := a.pendingWrites[rsp.RespondTo]
	if !found {
		log.Panicf("write response %s does not answer any pending burst",
			rsp.Meta().ID)
	}

	if rsp.Resp != bus.RespOkay {
		log.Panicf("write burst at 0x%x completed with %s",
			flight.req.Address, rsp.Resp)
	}

	a.commitMirror(flight)

	delete(a.pendingWrites, rsp.RespondTo)
	delete(a.inflightWrites, rsp.RespondTo)

	if a.Progress != nil {
		a.Progress.IncrementFinished(1)
	}

	if dumpLog {
		log.Printf("%.10f, agent, write complete, 0x%X\n",
			a.CurrentTime(), flight.req.Address)
	}

	return true
}

// commitMirror applies the strobed bytes of an acknowledged burst to the
// mirror and remembers the burst shape for read-back.
func (a *Agent) commitMirror(flight *writeFlight) {
	req := flight.req

	for i := 0; i < req.BeatCount; i++ {
		addr := bus.BeatAddress(req.Address, req.BeatBytes, req.BeatCount,
			req.Mode, i)
		low, high := bus.BeatLanes(req.Address, req.BeatBytes, req.BeatCount,
			req.Mode, a.busBytes, i)

		for lane := low; lane <= high; lane++ {
			if !flight.strobe[i][lane] {
				continue
			}

			a.mirror[addr+uint64(lane-low)] = flight.data[i][lane]
		}
	}

	a.knownBursts = append(a.knownBursts, burstShape{
		addr:  req.Address,
		size:  req.BeatBytes,
		count: req.BeatCount,
		mode:  req.Mode,
	})
}

func (a *Agent) processReadRsp() bool {
	item := a.readPort.RetrieveIncoming()
	if item == nil {
		return false
	}

	rsp, ok := item.(*bus.ReadDataRsp)
	if !ok {
		log.Panicf("cannot process message of type %s", reflect.TypeOf(item))
	}

	flight, found := a.pendingReads[rsp.RespondTo]
	if !found {
		log.Panicf("read response %s does not answer any pending burst",
			rsp.Meta().ID)
	}

	a.checkReadBeat(flight, rsp)

	flight.nextBeat++

	if rsp.Last {
		delete(a.pendingReads, rsp.RespondTo)
		delete(a.inflightReads, rsp.RespondTo)

		if a.Progress != nil {
			a.Progress.IncrementFinished(1)
		}

		if dumpLog {
			log.Printf("%.10f, agent, read complete, 0x%X\n",
				a.CurrentTime(), flight.req.Address)
		}
	}

	return true
}

func (a *Agent) checkReadBeat(flight *readFlight, rsp *bus.ReadDataRsp) {
	req := flight.req

	if rsp.BeatIndex != flight.nextBeat {
		log.Panicf("read at 0x%x delivered beat %d, want beat %d",
			req.Address, rsp.BeatIndex, flight.nextBeat)
	}

	if rsp.Last != (rsp.BeatIndex == req.BeatCount-1) {
		log.Panicf("read at 0x%x mismarks beat %d of %d as last=%v",
			req.Address, rsp.BeatIndex, req.BeatCount, rsp.Last)
	}

	if rsp.Resp != bus.RespOkay {
		log.Panicf("read at 0x%x returned %s", req.Address, rsp.Resp)
	}

	addr := bus.BeatAddress(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, rsp.BeatIndex)
	low, high := bus.BeatLanes(req.Address, req.BeatBytes, req.BeatCount,
		req.Mode, a.busBytes, rsp.BeatIndex)

	for lane := low; lane <= high; lane++ {
		want, known := a.mirror[addr+uint64(lane-low)]
		if !known {
			continue
		}

		if rsp.Data[lane] != want {
			log.Panicf(
				"read at 0x%x beat %d lane %d returned 0x%02x, want 0x%02x",
				req.Address, rsp.BeatIndex, lane, rsp.Data[lane], want)
		}
	}
}

// streamBeats sends the data beats of the write burst being issued, one per
// cycle. The data channel carries one burst at a time, in command order.
func (a *Agent) streamBeats() bool {
	flight := a.currentWrite
	if flight == nil {
		return false
	}

	req := flight.req
	i := flight.nextBeat

	beat := bus.WriteBeatMsgBuilder{}.
		WithSrc(a.writePort.AsRemote()).
		WithDst(a.SlaveWriteData).
		WithData(flight.data[i]).
		WithStrobe(flight.strobe[i]).
		WithLast(i == req.BeatCount-1).
		Build()

	if err := a.writePort.Send(beat); err != nil {
		return false
	}

	flight.nextBeat++

	if flight.nextBeat == req.BeatCount {
		a.pendingWrites[req.ID] = flight
		a.currentWrite = nil
	}

	return true
}

func (a *Agent) issueWrite() bool {
	if a.WritesLeft == 0 || a.currentWrite != nil {
		return false
	}

	shape := a.randomShape()
	r := touchedRange(shape)

	if a.overlapsInflight(r) {
		return false
	}

	req := bus.WriteBurstReqBuilder{}.
		WithSrc(a.writePort.AsRemote()).
		WithDst(a.SlaveWriteCmd).
		WithAddress(shape.addr).
		WithBeatBytes(shape.size).
		WithBeatCount(shape.count).
		WithMode(shape.mode).
		WithTransID(a.nextTransID).
		Build()

	if err := a.writePort.Send(req); err != nil {
		return false
	}

	a.nextTransID++
	a.WritesLeft--
	a.currentWrite = a.newWriteFlight(req)
	a.inflightWrites[req.ID] = r

	if dumpLog {
		log.Printf("%.10f, agent, write, 0x%X\n",
			a.CurrentTime(), shape.addr)
	}

	return true
}

// issueRead replays the shape of an earlier write, so the mirror knows what
// to expect.
func (a *Agent) issueRead() bool {
	if a.ReadsLeft == 0 || len(a.knownBursts) == 0 {
		return false
	}

	shape := a.knownBursts[a.rng.Intn(len(a.knownBursts))]
	r := touchedRange(shape)

	if a.overlapsInflight(r) {
		return false
	}

	req := bus.ReadBurstReqBuilder{}.
		WithSrc(a.readPort.AsRemote()).
		WithDst(a.SlaveReadCmd).
		WithAddress(shape.addr).
		WithBeatBytes(shape.size).
		WithBeatCount(shape.count).
		WithMode(shape.mode).
		WithTransID(a.nextTransID).
		Build()

	if err := a.readPort.Send(req); err != nil {
		return false
	}

	a.nextTransID++
	a.ReadsLeft--
	a.pendingReads[req.ID] = &readFlight{req: req}
	a.inflightReads[req.ID] = r

	if dumpLog {
		log.Printf("%.10f, agent, read, 0x%X\n",
			a.CurrentTime(), shape.addr)
	}

	return true
}

func (a *Agent) randomShape() burstShape {
	mode := modes[a.rng.Intn(len(modes))]

	size := a.busBytes
	if size > 1 && a.rng.Intn(2) == 0 {
		size /= 2
	}

	count := 1
	for count < a.maxBeats && a.rng.Intn(2) == 0 {
		count *= 2
	}

	span := uint64(size * count)
	slots := (a.MaxAddress-span)/uint64(size) + 1
	base := a.rng.Uint64() % slots * uint64(size)

	return burstShape{addr: base, size: size, count: count, mode: mode}
}

// newWriteFlight rolls random data and strobes for every beat of a burst.
// Bytes sit at their bus lanes, matching the wire format of the data
// channel.
func (a *Agent) newWriteFlight(req *bus.WriteBurstReq) *writeFlight {
	flight := &writeFlight{req: req}

	for i := 0; i < req.BeatCount; i++ {
		low, high := bus.BeatLanes(req.Address, req.BeatBytes, req.BeatCount,
			req.Mode, a.busBytes, i)

		data := make([]byte, a.busBytes)
		strobe := make([]bool, a.busBytes)

		for lane := low; lane <= high; lane++ {
			data[lane] = byte(a.rng.Intn(256))
			strobe[lane] = a.rng.Intn(8) != 0
		}

		flight.data = append(flight.data, data)
		flight.strobe = append(flight.strobe, strobe)
	}

	return flight
}

// overlapsInflight tells if a range touches any burst that has not fully
// completed yet. Mirror updates happen at completion time, so bursts that
// overlap in flight could race the mirror.
func (a *Agent) overlapsInflight(r addrRange) bool {
	for _, o := range a.inflightWrites {
		if r.overlaps(o) {
			return true
		}
	}

	for _, o := range a.inflightReads {
		if r.overlaps(o) {
			return true
		}
	}

	return false
}
