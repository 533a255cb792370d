package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/membus/analysis"
	"github.com/sarchlab/membus/datarecording"
	"github.com/sarchlab/membus/monitoring"
	"github.com/sarchlab/membus/sim"
	"github.com/sarchlab/membus/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	parallelEngine bool
	monitorOn      bool
	monitorPort    int
	autoOpen       bool
	perfPeriod     sim.VTimeInSec
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		parallelEngine: false,
		monitorOn:      true,
	}
}

// WithParallelEngine sets the simulation to use a parallel engine.
func (b Builder) WithParallelEngine() Builder {
	b.parallelEngine = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithAutoOpenDashboard makes the monitoring server open the dashboard in
// the default browser when it starts.
func (b Builder) WithAutoOpenDashboard() Builder {
	b.autoOpen = true
	return b
}

// WithPerfAnalysis turns on performance analysis with the given reporting
// period. The collected metrics go into the simulation's data recorder.
func (b Builder) WithPerfAnalysis(period sim.VTimeInSec) Builder {
	b.perfPeriod = period
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.autoOpen {
		panic("dashboard cannot auto-open when monitoring is disabled")
	}

	if b.perfPeriod < 0 {
		panic("performance analysis period must be positive")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	s.id = xid.New().String()

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "membus_sim_" + s.id
	}
	s.dataRecorder = datarecording.NewDataRecorder(outputPath)

	s.engine = sim.NewSerialEngine()
	if b.parallelEngine {
		s.engine = sim.NewParallelEngine()
	}

	s.visTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)

	if b.perfPeriod > 0 {
		s.perfAnalyzer = analysis.MakePerfAnalyzerBuilder().
			WithPeriod(b.perfPeriod).
			WithDataRecorder(s.dataRecorder).
			Build()
		s.perfAnalyzer.RegisterEngine(s.engine)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if b.autoOpen {
			s.monitor.WithAutoOpen()
		}

		s.monitor.RegisterEngine(s.engine)
		if s.perfAnalyzer != nil {
			s.monitor.RegisterPerfAnalyzer(s.perfAnalyzer)
		}

		s.monitor.StartServer()
	}

	return s
}
