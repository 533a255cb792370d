package burstagent

import (
	"math/rand"

	"github.com/sarchlab/membus/sim"
)

// Builder creates traffic agents.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq

	busBytes   int
	maxAddress uint64
	maxBeats   int
	numWrites  int
	numReads   int
	seed       int64
}

// MakeBuilder returns a Builder with sensible defaults.
func MakeBuilder() Builder {
	return Builder{
		freq:       1 * sim.GHz,
		busBytes:   4,
		maxAddress: 1 << 20,
		maxBeats:   8,
		numWrites:  1000,
		numReads:   1000,
		seed:       1,
	}
}

// WithEngine specifies the simulation engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq specifies the ticking frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBusBytes specifies the data channel width of the slave under test.
func (b Builder) WithBusBytes(n int) Builder {
	b.busBytes = n
	return b
}

// WithMaxAddress specifies the exclusive upper bound of generated addresses.
func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

// WithMaxBeats specifies the longest burst the agent generates.
func (b Builder) WithMaxBeats(n int) Builder {
	b.maxBeats = n
	return b
}

// WithNumWrites specifies the number of write bursts to issue.
func (b Builder) WithNumWrites(n int) Builder {
	b.numWrites = n
	return b
}

// WithNumReads specifies the number of read bursts to issue.
func (b Builder) WithNumReads(n int) Builder {
	b.numReads = n
	return b
}

// WithSeed specifies the seed of the traffic randomizer.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build constructs an agent. The slave-side ports must be assigned before
// the agent starts ticking.
func (b Builder) Build(name string) *Agent {
	b.paramsMustBeValid()

	a := &Agent{
		MaxAddress: b.maxAddress,
		WritesLeft: b.numWrites,
		ReadsLeft:  b.numReads,

		busBytes: b.busBytes,
		maxBeats: b.maxBeats,
		rng:      rand.New(rand.NewSource(b.seed)),

		pendingWrites:  make(map[string]*writeFlight),
		pendingReads:   make(map[string]*readFlight),
		inflightWrites: make(map[string]addrRange),
		inflightReads:  make(map[string]addrRange),
		mirror:         make(map[uint64]byte),
	}

	a.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, a)

	a.writePort = sim.NewPort(a, 4, 4, name+".Write")
	a.AddPort("Write", a.writePort)

	a.readPort = sim.NewPort(a, 4, 4, name+".Read")
	a.AddPort("Read", a.readPort)

	return a
}

func (b Builder) paramsMustBeValid() {
	if b.engine == nil {
		panic("burstagent: engine must be specified")
	}

	if b.busBytes < 1 || b.busBytes&(b.busBytes-1) != 0 {
		panic("burstagent: the bus width must be a power-of-two number " +
			"of bytes")
	}

	if b.maxBeats < 1 {
		panic("burstagent: the maximum burst length must be at least 1")
	}

	if b.maxAddress < uint64(b.busBytes*b.maxBeats) {
		panic("burstagent: the address range must fit the longest burst")
	}

	if b.numReads > 0 && b.numWrites == 0 {
		panic("burstagent: reads replay earlier writes, so writes must be " +
			"issued too")
	}
}
