package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/membus/sim"
)

type sampleMsg struct {
	sim.MsgMeta
}

func (m *sampleMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

func (m *sampleMsg) Clone() sim.Msg {
	newMsg := *m
	newMsg.ID = sim.GetIDGenerator().Generate()

	return &newMsg
}

var _ = Describe("Port Analyzer", func() {
	var (
		mockCtrl *gomock.Controller

		port          *MockPort
		incommingPort *MockPort
		outgoingPort  *MockPort
		timeTeller    *MockTimeTeller
		portLogger    *MockPerfLogger
		portAnalyzer  *PortAnalyzer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		port = NewMockPort(mockCtrl)
		port.EXPECT().Name().Return("PortName").AnyTimes()
		port.EXPECT().AsRemote().
			Return(sim.RemotePort("PortName")).
			AnyTimes()

		incommingPort = NewMockPort(mockCtrl)
		incommingPort.EXPECT().Name().Return("IncomingPort").AnyTimes()
		incommingPort.EXPECT().AsRemote().
			Return(sim.RemotePort("IncomingPort")).
			AnyTimes()

		outgoingPort = NewMockPort(mockCtrl)
		outgoingPort.EXPECT().Name().Return("OutgoingPort").AnyTimes()
		outgoingPort.EXPECT().AsRemote().
			Return(sim.RemotePort("OutgoingPort")).
			AnyTimes()

		timeTeller = NewMockTimeTeller(mockCtrl)
		portLogger = NewMockPerfLogger(mockCtrl)

		portAnalyzer = MakePortAnalyzerBuilder().
			WithPerfLogger(portLogger).
			WithTimeTeller(timeTeller).
			WithPeriod(1).
			WithPort(port).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should log period traffic", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.1))
		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(1.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})
	})

	It("should log traffic if only a middle period has value", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Dst:          port.AsRemote(),
				Src:          incommingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(20.5)).
			Times(2)
		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgRecvd,
			Item:   msg,
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       20.0,
			End:         21.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       20.0,
			End:         21.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(26.5)).
			AnyTimes()
		portAnalyzer.summarize()
	})

	It("should log incoming and outgoing traffic", func() {
		outMsg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}
		inMsg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 10000,
				Dst:          port.AsRemote(),
				Src:          incommingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(0.1)).
			Times(2)
		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   outMsg,
		})
		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgRecvd,
			Item:   inMsg,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(1.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       10000.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "IncomingPort",
			What:        "Incoming",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   outMsg,
		})
	})

	It("should log period traffic when there is a gap period", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(0.1))
		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(3.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})
	})

	It("should log period traffic when simulation ends", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(0.1))

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})

		timeTeller.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(3.1)).
			AnyTimes()
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})
		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       0.0,
			End:         1.0,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgSend,
			Item:   msg,
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       3.0,
			End:         3.1,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       100.0,
			Unit:        "Byte",
		})

		portLogger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:       3.0,
			End:         3.1,
			Where:       "PortName",
			WhereRemote: "OutgoingPort",
			What:        "Outgoing",
			EntryType:   "Traffic",
			Value:       1.0,
			Unit:        "Msg",
		})

		portAnalyzer.summarize()
	})

	It("should skip messages seen at buffer retrieval", func() {
		msg := &sampleMsg{
			sim.MsgMeta{
				TrafficBytes: 100,
				Src:          port.AsRemote(),
				Dst:          outgoingPort.AsRemote(),
			},
		}

		portAnalyzer.Func(sim.HookCtx{
			Domain: port,
			Pos:    sim.HookPosPortMsgRetrieveOutgoing,
			Item:   msg,
		})
	})
})
