// Package analysis collects performance metrics from a running simulation.
// Analyzers hook to ports and buffers, bucket what they observe into fixed
// periods, and write the summaries through a PerfLogger into a CSV file or a
// recording database.
package analysis

import (
	"reflect"
	"unsafe"

	"github.com/sarchlab/membus/datarecording"
	"github.com/sarchlab/membus/sim"
)

// PerfAnalyzerEntry is a single entry in the performance database.
type PerfAnalyzerEntry struct {
	Start       sim.VTimeInSec
	End         sim.VTimeInSec
	Where       string
	WhereRemote sim.RemotePort
	What        string
	EntryType   string
	Value       float64
	Unit        string
}

// PerfLogger is the interface that provides the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// PerfAnalyzer can report performance metrics during simulation.
type PerfAnalyzer struct {
	usePeriod bool
	period    sim.VTimeInSec
	engine    sim.Engine
	backend   PerfAnalyzerBackend
}

// RegisterEngine registers the engine that is used in the simulation.
func (p *PerfAnalyzer) RegisterEngine(e sim.Engine) {
	p.engine = e
}

// RegisterComponent registers a component to be monitored. All the ports of
// the component and the buffers inside those ports are hooked.
func (p *PerfAnalyzer) RegisterComponent(c sim.Component) {
	p.registerComponentBuffers(c)
	p.registerComponentPorts(c)
}

func (p *PerfAnalyzer) registerComponentBuffers(c sim.Component) {
	p.registerFieldBuffers(c)

	for _, port := range c.Ports() {
		p.registerFieldBuffers(port)
	}
}

// registerFieldBuffers hooks every Buffer-typed field of the given struct,
// exported or not.
func (p *PerfAnalyzer) registerFieldBuffers(c any) {
	v := reflect.ValueOf(c).Elem()
	bufferType := reflect.TypeOf((*sim.Buffer)(nil)).Elem()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		if field.Type() != bufferType {
			continue
		}

		buf := reflect.NewAt(
			field.Type(),
			unsafe.Pointer(field.UnsafeAddr()),
		).Elem().Interface().(sim.Buffer)

		if buf != nil {
			p.RegisterBuffer(buf)
		}
	}
}

// RegisterBuffer registers a buffer to be monitored.
func (p *PerfAnalyzer) RegisterBuffer(buf sim.Buffer) {
	builder := MakeBufferAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithBuffer(buf)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	buf.AcceptHook(builder.Build())
}

func (p *PerfAnalyzer) registerComponentPorts(c sim.Component) {
	for _, port := range c.Ports() {
		p.RegisterPort(port)
	}
}

// RegisterPort registers a port to be monitored.
func (p *PerfAnalyzer) RegisterPort(port sim.Port) {
	builder := MakePortAnalyzerBuilder().
		WithTimeTeller(p.engine).
		WithPerfLogger(p).
		WithPort(port)

	if p.usePeriod {
		builder = builder.WithPeriod(p.period)
	}

	port.AcceptHook(builder.Build())
}

// AddDataEntry adds a data entry to the backend.
func (p *PerfAnalyzer) AddDataEntry(entry PerfAnalyzerEntry) {
	p.backend.AddDataEntry(entry)
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	usePeriod    bool
	period       sim.VTimeInSec
	backendType  string
	dbFilename   string
	dataRecorder datarecording.DataRecorder
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{
		backendType: "csv",
		dbFilename:  "perf",
	}
}

// WithPeriod sets the period of the PerfAnalyzer.
func (b PerfAnalyzerBuilder) WithPeriod(
	period sim.VTimeInSec,
) PerfAnalyzerBuilder {
	b.usePeriod = true
	b.period = period
	return b
}

// WithSQLiteBackend makes the PerfAnalyzer write into a SQLite database
// instead of a CSV file.
func (b PerfAnalyzerBuilder) WithSQLiteBackend() PerfAnalyzerBuilder {
	b.backendType = "sqlite"
	return b
}

// WithDBFilename sets the filename of the output file, without the
// extension.
func (b PerfAnalyzerBuilder) WithDBFilename(
	filename string,
) PerfAnalyzerBuilder {
	b.dbFilename = filename
	return b
}

// WithDataRecorder makes the PerfAnalyzer write through an existing data
// recorder, so the metrics land in the same database as the rest of the
// run's output.
func (b PerfAnalyzerBuilder) WithDataRecorder(
	dr datarecording.DataRecorder,
) PerfAnalyzerBuilder {
	b.backendType = "recorder"
	b.dataRecorder = dr
	return b
}

// Build creates a PerfAnalyzer.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	var backend PerfAnalyzerBackend

	switch b.backendType {
	case "csv":
		backend = NewCSVPerfAnalyzerBackend(b.dbFilename)
	case "sqlite":
		backend = NewDBPerfAnalyzerBackend(b.dbFilename)
	case "recorder":
		backend = NewRecorderBackend(b.dataRecorder)
	default:
		panic("unknown backend type " + b.backendType)
	}

	return &PerfAnalyzer{
		usePeriod: b.usePeriod,
		period:    b.period,
		backend:   backend,
	}
}
