package slavemem

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/sim"
)

// Builder creates slave memory components.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq

	numPorts    int
	portBufSize int

	addrWidth int
	dataWidth int
	idWidth   int
	userWidth int

	uninitPolicy     UninitPolicy
	warnOnUninit     bool
	clearOnAccess    bool
	defaultWriteResp bus.Resp
	defaultReadResp  bus.Resp

	storage *bus.ByteStore
	seed    int64
}

// MakeBuilder returns a Builder with sensible defaults.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		numPorts:    1,
		portBufSize: 1,
		addrWidth:   32,
		dataWidth:   32,
		idWidth:     4,
		userWidth:   4,
		seed:        1,
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

// WithNumPorts specifies the number of port groups.
func (b Builder) WithNumPorts(num int) Builder {
	b.numPorts = num
	return b
}

// WithPortBufSize specifies the depth of each channel's buffers.
func (b Builder) WithPortBufSize(size int) Builder {
	b.portBufSize = size
	return b
}

// WithAddrWidth specifies the address width in bits.
func (b Builder) WithAddrWidth(bits int) Builder {
	b.addrWidth = bits
	return b
}

// WithDataWidth specifies the data channel width in bits.
func (b Builder) WithDataWidth(bits int) Builder {
	b.dataWidth = bits
	return b
}

// WithIDWidth specifies the transaction ID width in bits.
func (b Builder) WithIDWidth(bits int) Builder {
	b.idWidth = bits
	return b
}

// WithUserWidth specifies the user tag width in bits.
func (b Builder) WithUserWidth(bits int) Builder {
	b.userWidth = bits
	return b
}

// WithUninitPolicy specifies the value policy for reads of never-written
// bytes.
func (b Builder) WithUninitPolicy(policy UninitPolicy) Builder {
	b.uninitPolicy = policy
	return b
}

// WithWarnOnUninit makes the component log every read of a never-written
// byte.
func (b Builder) WithWarnOnUninit() Builder {
	b.warnOnUninit = true
	return b
}

// WithClearErrorOnAccess makes both error maps reset an observed non-OKAY
// code to OKAY.
func (b Builder) WithClearErrorOnAccess() Builder {
	b.clearOnAccess = true
	return b
}

// WithDefaultWriteResp specifies the response code of addresses without an
// injected entry in the write error map.
func (b Builder) WithDefaultWriteResp(resp bus.Resp) Builder {
	b.defaultWriteResp = resp
	return b
}

// WithDefaultReadResp specifies the response code of addresses without an
// injected entry in the read error map.
func (b Builder) WithDefaultReadResp(resp bus.Resp) Builder {
	b.defaultReadResp = resp
	return b
}

// WithStorage injects an existing backing store, so several components can
// share it or tests can preload it.
func (b Builder) WithStorage(storage *bus.ByteStore) Builder {
	b.storage = storage
	return b
}

// WithSeed specifies the seed of the random uninitialized-data policy.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build constructs a slave memory component.
func (b Builder) Build(name string) *Comp {
	b.paramsMustBeValid()

	c := &Comp{
		uninitPolicy: b.uninitPolicy,
		warnOnUninit: b.warnOnUninit,
		busBytes:     b.dataWidth / 8,
		enabled:      true,
		rng:          rand.New(rand.NewSource(b.seed)),
	}

	if b.storage != nil {
		c.Storage = b.storage
	} else {
		c.Storage = bus.NewByteStore(b.addrWidth)
	}

	c.WriteErrors = bus.NewErrorMap(b.defaultWriteResp, b.clearOnAccess)
	c.ReadErrors = bus.NewErrorMap(b.defaultReadResp, b.clearOnAccess)

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.CtrlPort = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Ctrl")
	c.AddPort("Ctrl", c.CtrlPort)

	for i := 0; i < b.numPorts; i++ {
		c.groups = append(c.groups, b.buildPortGroup(c, name, i))
	}

	c.AddMiddleware(&monitorMiddleware{Comp: c})
	c.AddMiddleware(&ctrlMiddleware{Comp: c})
	c.AddMiddleware(&writeMiddleware{Comp: c})
	c.AddMiddleware(&readMiddleware{Comp: c})

	return c
}

func (b Builder) buildPortGroup(c *Comp, name string, i int) *portGroup {
	g := &portGroup{id: i}

	channels := []struct {
		port *sim.Port
		name string
	}{
		{&g.writeCmdPort, "WriteCmd"},
		{&g.writeDataPort, "WriteData"},
		{&g.writeRspPort, "WriteRsp"},
		{&g.readCmdPort, "ReadCmd"},
		{&g.readDataPort, "ReadData"},
	}

	for _, ch := range channels {
		localName := fmt.Sprintf("%s[%d]", ch.name, i)
		port := sim.NewPort(c, b.portBufSize, b.portBufSize,
			fmt.Sprintf("%s.%s", name, localName))
		c.AddPort(localName, port)
		*ch.port = port
	}

	return g
}

func (b Builder) paramsMustBeValid() {
	if b.engine == nil {
		panic("slavemem: engine must be specified")
	}

	if b.numPorts <= 0 {
		panic("slavemem: the number of ports must be at least 1")
	}

	if b.portBufSize <= 0 {
		panic("slavemem: the port buffer size must be at least 1")
	}

	if b.addrWidth <= 0 || b.addrWidth > 64 {
		panic("slavemem: the address width must be in the range of 1 to 64")
	}

	if b.dataWidth <= 0 || b.dataWidth%8 != 0 {
		panic("slavemem: the data width must be a positive multiple of 8")
	}

	busBytes := b.dataWidth / 8
	if busBytes&(busBytes-1) != 0 {
		panic("slavemem: the data width must be a power-of-two number " +
			"of bytes")
	}

	if b.idWidth <= 0 {
		panic("slavemem: the ID width must not be zero")
	}

	if b.userWidth <= 0 {
		panic("slavemem: the user width must not be zero")
	}
}
