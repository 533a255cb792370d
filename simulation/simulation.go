// Package simulation assembles the services that a simulation needs, wiring
// the engine, the data recorder, the tracers, and the monitor together.
package simulation

import (
	"github.com/sarchlab/membus/analysis"
	"github.com/sarchlab/membus/datarecording"
	"github.com/sarchlab/membus/monitoring"
	"github.com/sarchlab/membus/sim"
	"github.com/sarchlab/membus/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	perfAnalyzer *analysis.PerfAnalyzer
	visTracer    *tracing.DBTracer

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It returns nil when
// the simulation is built without monitoring.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetPerfAnalyzer returns the performance analyzer used in the simulation. It
// returns nil when the simulation is built without performance analysis.
func (s *Simulation) GetPerfAnalyzer() *analysis.PerfAnalyzer {
	return s.perfAnalyzer
}

// GetVisTracer returns the tracer used in the simulation.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RegisterComponent registers a component with the simulation. The component
// is also fed to the monitor and the performance analyzer, when they are on.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, ok := s.compNameIndex[compName]; ok {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}

	if s.perfAnalyzer != nil {
		s.perfAnalyzer.RegisterComponent(c)
	}
}

// registerPort registers a port with the simulation.
func (s *Simulation) registerPort(p sim.Port) {
	portName := p.Name()
	if _, ok := s.portNameIndex[portName]; ok {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name, or nil when
// no component carries the name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	idx, ok := s.compNameIndex[name]
	if !ok {
		return nil
	}

	return s.components[idx]
}

// GetPortByName returns the port with the given name, or nil when no port
// carries the name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	idx, ok := s.portNameIndex[name]
	if !ok {
		return nil
	}

	return s.ports[idx]
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	s.dataRecorder.Close()
}
