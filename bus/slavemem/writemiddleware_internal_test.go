package slavemem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/membus/bus"
	"github.com/sarchlab/membus/sim"
)

func buildWriteBurst(addr uint64, size, count int) *bus.WriteBurstReq {
	return bus.WriteBurstReqBuilder{}.
		WithSrc("Agent.Port").
		WithDst("SlaveMem.WriteCmd[0]").
		WithAddress(addr).
		WithBeatBytes(size).
		WithBeatCount(count).
		WithMode(bus.BurstIncr).
		WithTransID(7).
		WithUser(3).
		Build()
}

func buildWriteBeat(data []byte, strobe []bool, last bool) *bus.WriteBeatMsg {
	return bus.WriteBeatMsgBuilder{}.
		WithSrc("Agent.Port").
		WithDst("SlaveMem.WriteData[0]").
		WithData(data).
		WithStrobe(strobe).
		WithLast(last).
		Build()
}

var _ = Describe("WriteMiddleware", func() {
	var (
		mockCtrl      *gomock.Controller
		engine        *MockEngine
		writeCmdPort  *MockPort
		writeDataPort *MockPort
		writeRspPort  *MockPort
		comp          *Comp
		g             *portGroup
		mw            *writeMiddleware
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		writeCmdPort = NewMockPort(mockCtrl)
		writeDataPort = NewMockPort(mockCtrl)
		writeRspPort = NewMockPort(mockCtrl)

		comp = MakeBuilder().
			WithEngine(engine).
			WithAddrWidth(16).
			WithDataWidth(32).
			Build("SlaveMem")

		g = comp.groups[0]
		g.writeCmdPort = writeCmdPort
		g.writeDataPort = writeDataPort
		g.writeRspPort = writeRspPort

		mw = &writeMiddleware{Comp: comp}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should do nothing when idle", func() {
		writeCmdPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeFalse())
	})

	It("should accept a write burst", func() {
		req := buildWriteBurst(0x100, 4, 2)
		writeCmdPort.EXPECT().PeekIncoming().Return(req)
		writeCmdPort.EXPECT().RetrieveIncoming().Return(req)

		Expect(mw.Tick()).To(BeTrue())
		Expect(g.pendingWrites).To(HaveLen(1))
	})

	It("should consume a data beat and write only the strobed bytes", func() {
		g.pendingWrites = append(g.pendingWrites, buildWriteBurst(0x100, 4, 2))

		beat := buildWriteBeat(
			[]byte{1, 2, 3, 4},
			[]bool{true, false, true, false},
			false)
		writeDataPort.EXPECT().PeekIncoming().Return(beat)
		writeDataPort.EXPECT().RetrieveIncoming().Return(beat)
		writeCmdPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeTrue())

		Expect(g.writeBeatsSeen).To(Equal(1))
		Expect(comp.Storage.Known(0x100)).To(BeTrue())
		Expect(comp.Storage.Known(0x101)).To(BeFalse())
		Expect(comp.Storage.Known(0x102)).To(BeTrue())
		Expect(comp.Storage.Known(0x103)).To(BeFalse())

		v, _, _ := comp.Storage.ReadByte(0x100)
		Expect(v).To(Equal(byte(1)))
		v, _, _ = comp.Storage.ReadByte(0x102)
		Expect(v).To(Equal(byte(3)))

		Expect(g.writeMonCaptured.Valid).To(BeTrue())
		Expect(g.writeMonCaptured.Address).To(Equal(uint64(0x100)))
	})

	It("should complete a burst and queue its response", func() {
		req := buildWriteBurst(0x40, 4, 1)
		g.pendingWrites = append(g.pendingWrites, req)

		beat := buildWriteBeat(
			[]byte{9, 9, 9, 9},
			[]bool{true, true, true, true},
			true)
		writeDataPort.EXPECT().PeekIncoming().Return(beat)
		writeDataPort.EXPECT().RetrieveIncoming().Return(beat)
		writeRspPort.EXPECT().AsRemote().
			Return(sim.RemotePort("SlaveMem.WriteRsp[0]"))
		writeCmdPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeTrue())

		Expect(g.pendingWrites).To(BeEmpty())
		Expect(g.writeBeatsSeen).To(Equal(0))
		Expect(g.pendingWriteRsps).To(HaveLen(1))

		rsp := g.pendingWriteRsps[0]
		Expect(rsp.Resp).To(Equal(bus.RespOkay))
		Expect(rsp.TransID).To(Equal(uint64(7)))
		Expect(rsp.User).To(Equal(uint64(3)))
		Expect(rsp.GetRspTo()).To(Equal(req.ID))
	})

	It("should aggregate injected errors with the most severe winning",
		func() {
			comp.WriteErrors.Inject(0x41, bus.RespSlaveErr)
			comp.WriteErrors.Inject(0x43, bus.RespDecodeErr)

			g.pendingWrites = append(g.pendingWrites,
				buildWriteBurst(0x40, 4, 1))

			beat := buildWriteBeat(
				[]byte{1, 2, 3, 4},
				[]bool{true, true, true, true},
				true)
			writeDataPort.EXPECT().PeekIncoming().Return(beat)
			writeDataPort.EXPECT().RetrieveIncoming().Return(beat)
			writeRspPort.EXPECT().AsRemote().
				Return(sim.RemotePort("SlaveMem.WriteRsp[0]"))
			writeCmdPort.EXPECT().PeekIncoming().Return(nil)

			Expect(mw.Tick()).To(BeTrue())

			Expect(g.pendingWriteRsps).To(HaveLen(1))
			Expect(g.pendingWriteRsps[0].Resp).To(Equal(bus.RespDecodeErr))
		})

	It("should latch a fault when the final flag comes early", func() {
		recorder := &faultRecorder{}
		comp.AcceptHook(recorder)

		g.pendingWrites = append(g.pendingWrites, buildWriteBurst(0x100, 4, 2))

		beat := buildWriteBeat(
			[]byte{1, 2, 3, 4},
			[]bool{true, true, true, true},
			true)
		writeDataPort.EXPECT().PeekIncoming().Return(beat)
		writeDataPort.EXPECT().RetrieveIncoming().Return(beat)

		Expect(mw.Tick()).To(BeTrue())

		Expect(g.writeFaulted).To(BeTrue())
		Expect(comp.Storage.Known(0x100)).To(BeFalse())
		Expect(recorder.faults).To(HaveLen(1))
		Expect(recorder.faults[0].Port).To(Equal(0))
		Expect(recorder.faults[0].Direction).To(Equal(DirWrite))
	})

	It("should latch a fault when the final flag never comes", func() {
		g.pendingWrites = append(g.pendingWrites, buildWriteBurst(0x100, 4, 1))

		beat := buildWriteBeat(
			[]byte{1, 2, 3, 4},
			[]bool{true, true, true, true},
			false)
		writeDataPort.EXPECT().PeekIncoming().Return(beat)
		writeDataPort.EXPECT().RetrieveIncoming().Return(beat)

		Expect(mw.Tick()).To(BeTrue())
		Expect(g.writeFaulted).To(BeTrue())
	})

	It("should latch a fault on a malformed burst descriptor", func() {
		req := buildWriteBurst(0x100, 3, 2)
		writeCmdPort.EXPECT().PeekIncoming().Return(req)
		writeCmdPort.EXPECT().RetrieveIncoming().Return(req)

		Expect(mw.Tick()).To(BeTrue())

		Expect(g.writeFaulted).To(BeTrue())
		Expect(g.pendingWrites).To(BeEmpty())
	})

	It("should refuse all work after a fault", func() {
		g.writeFaulted = true

		Expect(mw.Tick()).To(BeFalse())
	})

	It("should hold the response until the initiator accepts it", func() {
		rsp := bus.WriteDoneRspBuilder{}.
			WithSrc("SlaveMem.WriteRsp[0]").
			WithDst("Agent.Port").
			WithResp(bus.RespOkay).
			Build()
		g.pendingWriteRsps = append(g.pendingWriteRsps, rsp)

		writeRspPort.EXPECT().Send(rsp).Return(sim.NewSendError())
		writeCmdPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeFalse())
		Expect(g.pendingWriteRsps).To(HaveLen(1))

		writeRspPort.EXPECT().Send(rsp).Return(nil)
		writeCmdPort.EXPECT().PeekIncoming().Return(nil)

		Expect(mw.Tick()).To(BeTrue())
		Expect(g.pendingWriteRsps).To(BeEmpty())
	})

	It("should not accept commands while disabled", func() {
		comp.enabled = false

		Expect(mw.Tick()).To(BeFalse())
	})
})
