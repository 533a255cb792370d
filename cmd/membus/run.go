package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/membus/bus/burstagent"
	"github.com/sarchlab/membus/bus/slavemem"
	"github.com/sarchlab/membus/monitoring"
	"github.com/sarchlab/membus/sim"
	"github.com/sarchlab/membus/sim/directconnection"
	"github.com/sarchlab/membus/simulation"
)

type trafficConfig struct {
	ports       int
	writes      int
	reads       int
	addrWidth   int
	dataWidth   int
	idWidth     int
	userWidth   int
	maxBeats    int
	portBufSize int

	uninit        slavemem.UninitPolicy
	warnUninit    bool
	clearOnAccess bool
	seed          int64

	parallel      bool
	noMonitor     bool
	monitorPort   int
	openDashboard bool
	perfPeriod    float64
	output        string
}

func configFromFlags(cmd *cobra.Command) trafficConfig {
	flags := cmd.Flags()
	cfg := trafficConfig{}

	cfg.ports, _ = flags.GetInt("ports")
	cfg.writes, _ = flags.GetInt("writes")
	cfg.reads, _ = flags.GetInt("reads")
	cfg.addrWidth, _ = flags.GetInt("addr-width")
	cfg.dataWidth, _ = flags.GetInt("data-width")
	cfg.idWidth, _ = flags.GetInt("id-width")
	cfg.userWidth, _ = flags.GetInt("user-width")
	cfg.maxBeats, _ = flags.GetInt("max-beats")
	cfg.portBufSize, _ = flags.GetInt("port-buf-size")

	policy, _ := flags.GetString("uninit")
	cfg.uninit = parseUninitPolicy(policy)
	cfg.warnUninit, _ = flags.GetBool("warn-uninit")
	cfg.clearOnAccess, _ = flags.GetBool("clear-error-on-access")
	cfg.seed, _ = flags.GetInt64("seed")

	cfg.parallel, _ = flags.GetBool("parallel")
	cfg.noMonitor, _ = flags.GetBool("no-monitor")
	cfg.monitorPort, _ = flags.GetInt("monitor-port")
	cfg.openDashboard, _ = flags.GetBool("open-dashboard")
	cfg.perfPeriod, _ = flags.GetFloat64("perf-period")
	cfg.output, _ = flags.GetString("output")

	return cfg
}

func parseUninitPolicy(name string) slavemem.UninitPolicy {
	switch name {
	case "dontcare":
		return slavemem.UninitDontCare
	case "zero":
		return slavemem.UninitZero
	case "one":
		return slavemem.UninitOne
	case "random":
		return slavemem.UninitRandom
	}

	log.Fatalf("uninit policy %q is not known, "+
		"pick dontcare, zero, one, or random", name)

	return slavemem.UninitDontCare
}

func buildSimulation(cfg trafficConfig) *simulation.Simulation {
	builder := simulation.MakeBuilder()

	if cfg.parallel {
		builder = builder.WithParallelEngine()
	}

	if cfg.noMonitor {
		builder = builder.WithoutMonitoring()
	} else {
		if cfg.monitorPort > 0 {
			builder = builder.WithMonitorPort(cfg.monitorPort)
		}
		if cfg.openDashboard {
			builder = builder.WithAutoOpenDashboard()
		}
	}

	if cfg.perfPeriod > 0 {
		builder = builder.WithPerfAnalysis(sim.VTimeInSec(cfg.perfPeriod))
	}

	if cfg.output != "" {
		builder = builder.WithOutputFileName(cfg.output)
	}

	return builder.Build()
}

func buildSlave(
	cfg trafficConfig,
	s *simulation.Simulation,
) *slavemem.Comp {
	builder := slavemem.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithNumPorts(cfg.ports).
		WithPortBufSize(cfg.portBufSize).
		WithAddrWidth(cfg.addrWidth).
		WithDataWidth(cfg.dataWidth).
		WithIDWidth(cfg.idWidth).
		WithUserWidth(cfg.userWidth).
		WithUninitPolicy(cfg.uninit).
		WithSeed(cfg.seed)

	if cfg.warnUninit {
		builder = builder.WithWarnOnUninit()
	}

	if cfg.clearOnAccess {
		builder = builder.WithClearErrorOnAccess()
	}

	slave := builder.Build("MemSlave")
	s.RegisterComponent(slave)

	return slave
}

func buildAgents(
	cfg trafficConfig,
	s *simulation.Simulation,
	slave *slavemem.Comp,
) []*burstagent.Agent {
	agents := make([]*burstagent.Agent, 0, cfg.ports)

	for i := 0; i < cfg.ports; i++ {
		agent := burstagent.MakeBuilder().
			WithEngine(s.GetEngine()).
			WithBusBytes(slave.BusBytes()).
			WithMaxAddress(uint64(1) << cfg.addrWidth).
			WithMaxBeats(cfg.maxBeats).
			WithNumWrites(cfg.writes).
			WithNumReads(cfg.reads).
			WithSeed(cfg.seed + int64(i)).
			Build(fmt.Sprintf("Agent[%d]", i))

		agent.SlaveWriteCmd = slave.WriteCmdPort(i).AsRemote()
		agent.SlaveWriteData = slave.WriteDataPort(i).AsRemote()
		agent.SlaveReadCmd = slave.ReadCmdPort(i).AsRemote()

		s.RegisterComponent(agent)
		agents = append(agents, agent)
	}

	return agents
}

func connectAll(
	s *simulation.Simulation,
	slave *slavemem.Comp,
	agents []*burstagent.Agent,
) {
	conn := directconnection.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithFreq(1 * sim.GHz).
		Build("Conn")

	for i, agent := range agents {
		conn.PlugIn(agent.GetPortByName("Write"))
		conn.PlugIn(agent.GetPortByName("Read"))
		conn.PlugIn(slave.WriteCmdPort(i))
		conn.PlugIn(slave.WriteDataPort(i))
		conn.PlugIn(slave.WriteRspPort(i))
		conn.PlugIn(slave.ReadCmdPort(i))
		conn.PlugIn(slave.ReadDataPort(i))
	}

	conn.PlugIn(slave.CtrlPort)

	s.RegisterComponent(conn)
}

func attachProgressBars(
	s *simulation.Simulation,
	cfg trafficConfig,
	agents []*burstagent.Agent,
) []*monitoring.ProgressBar {
	monitor := s.GetMonitor()
	if monitor == nil {
		return nil
	}

	bars := make([]*monitoring.ProgressBar, 0, len(agents))
	for _, agent := range agents {
		bar := monitor.CreateProgressBar(
			agent.Name(), uint64(cfg.writes+cfg.reads))
		agent.Progress = bar
		bars = append(bars, bar)
	}

	return bars
}

func runTraffic(cmd *cobra.Command) {
	cfg := configFromFlags(cmd)

	s := buildSimulation(cfg)
	atexit.Register(func() { s.Terminate() })

	slave := buildSlave(cfg, s)
	agents := buildAgents(cfg, s, slave)
	connectAll(s, slave, agents)
	bars := attachProgressBars(s, cfg, agents)

	for _, agent := range agents {
		agent.TickLater()
	}

	start := time.Now()
	err := s.GetEngine().Run()
	if err != nil {
		log.Panic(err)
	}
	elapsed := time.Since(start)

	reportOutcome(s, cfg, slave, agents, bars, elapsed)

	atexit.Exit(0)
}

func reportOutcome(
	s *simulation.Simulation,
	cfg trafficConfig,
	slave *slavemem.Comp,
	agents []*burstagent.Agent,
	bars []*monitoring.ProgressBar,
	elapsed time.Duration,
) {
	fmt.Printf("Simulated %.9fs of bus time in %s.\n",
		float64(s.GetEngine().CurrentTime()),
		elapsed.Round(time.Millisecond))

	allDone := true
	for i, agent := range agents {
		state := "completed"
		if !agent.Done() {
			state = "stalled"
			allDone = false
		}

		fmt.Printf("%s: %s, %d writes and %d reads issued",
			agent.Name(), state,
			cfg.writes-agent.WritesLeft, cfg.reads-agent.ReadsLeft)

		if bars != nil {
			fmt.Printf(", %.0f%% of traffic retired",
				bars[i].CompletedRatio()*100)
		}

		fmt.Println()

		if slave.WriteFaulted(i) {
			fmt.Printf("%s: the write side of the slave port halted on a "+
				"protocol violation\n", agent.Name())
		}

		if slave.ReadFaulted(i) {
			fmt.Printf("%s: the read side of the slave port halted on a "+
				"protocol violation\n", agent.Name())
		}
	}

	if !allDone {
		panic("some agents could not finish their traffic")
	}
}
