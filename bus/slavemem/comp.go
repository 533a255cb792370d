package slavemem

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/sim"
)

// HookPosFault triggers when a port latches a protocol fault and halts one
// of its directions.
var HookPosFault = &sim.HookPos{Name: "SlaveMemFault"}

// Directions of a port group.
const (
	DirWrite = "write"
	DirRead  = "read"
)

// FaultInfo describes a latched protocol fault. It is the hook item of
// HookPosFault.
type FaultInfo struct {
	Port      int
	Direction string
	Reason    string
}

// An UninitPolicy selects the value that a read of a never-written byte
// returns.
type UninitPolicy int

// The uninitialized-data policies.
const (
	// UninitDontCare returns an unspecified value.
	UninitDontCare UninitPolicy = iota

	// UninitZero returns zero.
	UninitZero

	// UninitOne returns 0xFF.
	UninitOne

	// UninitRandom returns a fresh random byte on every access.
	UninitRandom
)

func (p UninitPolicy) String() string {
	switch p {
	case UninitDontCare:
		return "DontCare"
	case UninitZero:
		return "Zero"
	case UninitOne:
		return "One"
	case UninitRandom:
		return "Random"
	}

	return "UninitPolicy(?)"
}

// A MonitorEvent is the snapshot of one completed beat. Each port group
// republishes the beat its write or read engine completed in the previous
// cycle, so external observers always see settled state.
type MonitorEvent struct {
	Valid     bool
	Address   uint64
	Data      []byte
	TransID   uint64
	User      uint64
	BeatIndex int
	Last      bool
}

// A portGroup bundles the five channels of one slave port together with the
// engine state that serves them. Port groups never interact with each
// other. They share only the byte store and the error maps.
type portGroup struct {
	id int

	writeCmdPort  sim.Port
	writeDataPort sim.Port
	writeRspPort  sim.Port
	readCmdPort   sim.Port
	readDataPort  sim.Port

	pendingWrites    []*bus.WriteBurstReq
	writeBeatsSeen   int
	writeResp        bus.Resp
	pendingWriteRsps []*bus.WriteDoneRsp
	writeFaulted     bool
	writeRspBlocked  bool

	pendingReads    []*bus.ReadBurstReq
	readBeatIndex   int
	heldReadRsp     *bus.ReadDataRsp
	heldReadAddr    uint64
	heldReadAddrs   []uint64
	readFaulted     bool
	readDataBlocked bool

	writeMonCaptured MonitorEvent
	writeMonVisible  MonitorEvent
	readMonCaptured  MonitorEvent
	readMonVisible   MonitorEvent
}

// Comp is a passive burst-bus slave. All its port groups serve one shared
// byte store, with write and read error maps injecting response codes into
// the response path.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	CtrlPort sim.Port

	Storage     *bus.ByteStore
	WriteErrors *bus.ErrorMap
	ReadErrors  *bus.ErrorMap

	busBytes     int
	uninitPolicy UninitPolicy
	warnOnUninit bool
	enabled      bool
	rng          *rand.Rand

	groups          []*portGroup
	pendingCtrlRsps []sim.Msg
}

// Tick triggers the middleware chain of the component.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// NumPorts returns the number of port groups.
func (c *Comp) NumPorts() int {
	return len(c.groups)
}

// BusBytes returns the width of the data channels in bytes.
func (c *Comp) BusBytes() int {
	return c.busBytes
}

// WriteCmdPort returns the write command port of group i.
func (c *Comp) WriteCmdPort(i int) sim.Port {
	return c.groups[i].writeCmdPort
}

// WriteDataPort returns the write data port of group i.
func (c *Comp) WriteDataPort(i int) sim.Port {
	return c.groups[i].writeDataPort
}

// WriteRspPort returns the write response port of group i.
func (c *Comp) WriteRspPort(i int) sim.Port {
	return c.groups[i].writeRspPort
}

// ReadCmdPort returns the read command port of group i.
func (c *Comp) ReadCmdPort(i int) sim.Port {
	return c.groups[i].readCmdPort
}

// ReadDataPort returns the read data port of group i.
func (c *Comp) ReadDataPort(i int) sim.Port {
	return c.groups[i].readDataPort
}

// WriteMonitor returns the write-side monitor output of group i. The event
// mirrors the write beat that committed one cycle earlier.
func (c *Comp) WriteMonitor(i int) MonitorEvent {
	return c.groups[i].writeMonVisible
}

// ReadMonitor returns the read-side monitor output of group i. The event
// mirrors the read beat that was accepted one cycle earlier.
func (c *Comp) ReadMonitor(i int) MonitorEvent {
	return c.groups[i].readMonVisible
}

// WriteFaulted tells if the write engine of group i has halted on a
// protocol fault.
func (c *Comp) WriteFaulted(i int) bool {
	return c.groups[i].writeFaulted
}

// ReadFaulted tells if the read engine of group i has halted on a protocol
// fault.
func (c *Comp) ReadFaulted(i int) bool {
	return c.groups[i].readFaulted
}

func (c *Comp) latchWriteFault(g *portGroup, reason string) {
	g.writeFaulted = true
	c.reportFault(g, DirWrite, reason)
}

func (c *Comp) latchReadFault(g *portGroup, reason string) {
	g.readFaulted = true
	c.reportFault(g, DirRead, reason)
}

func (c *Comp) reportFault(g *portGroup, dir, reason string) {
	log.Printf("%s: %s engine of port %d halted: %s",
		c.Name(), dir, g.id, reason)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosFault,
		Item: FaultInfo{
			Port:      g.id,
			Direction: dir,
			Reason:    reason,
		},
	})
}

// burstTaskID identifies the trace task of the burst that the request with
// the given message ID opened.
func (c *Comp) burstTaskID(reqID string) string {
	return fmt.Sprintf("%s@%s", reqID, c.Name())
}

// portLocation identifies one port group in traces.
func (c *Comp) portLocation(g *portGroup) string {
	return fmt.Sprintf("%s.Port[%d]", c.Name(), g.id)
}

func (c *Comp) uninitValue() byte {
	switch c.uninitPolicy {
	case UninitDontCare, UninitZero:
		return 0
	case UninitOne:
		return 0xFF
	case UninitRandom:
		return byte(c.rng.Intn(256))
	}

	log.Panicf("uninitialized-data policy %d is not supported",
		c.uninitPolicy)

	return 0
}

// burstParamsBroken checks the descriptor fields that a misbehaving
// initiator could corrupt. It returns the reason when a field is invalid.
func (c *Comp) burstParamsBroken(req bus.BurstReq) (string, bool) {
	if req.GetBeatCount() < 1 {
		return "beat count must be at least 1", true
	}

	size := req.GetBeatBytes()
	if size < 1 || size&(size-1) != 0 {
		return "beat size must be a power of two", true
	}

	if size > c.busBytes {
		return "beat size must not exceed the bus width", true
	}

	if req.GetMode() == bus.BurstWrap &&
		req.GetAddress()%uint64(size) != 0 {
		return "wrapping bursts must start at an aligned address", true
	}

	return "", false
}
