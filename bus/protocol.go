// Package bus defines the protocol of a split-transaction, burst-oriented
// memory bus: the request, data, and response messages, the burst addressing
// rules, and the shared store and error maps that bus slaves serve from.
package bus

import (
	"github.com/sarchlab/membus/sim"
)

var burstReqByteOverhead = 12
var burstRspByteOverhead = 4
var controlMsgByteOverhead = 4

// A BurstReq abstracts the write and read burst requests.
type BurstReq interface {
	sim.Msg
	GetAddress() uint64
	GetBeatBytes() int
	GetBeatCount() int
	GetMode() BurstMode
	GetTransID() uint64
}

// A WriteBurstReq opens a write burst. The data follows as WriteBeatMsgs on
// the write data channel.
type WriteBurstReq struct {
	sim.MsgMeta

	Address   uint64
	BeatBytes int
	BeatCount int
	Mode      BurstMode
	TransID   uint64
	User      uint64
}

// Meta returns the message meta.
func (r *WriteBurstReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone creates a copy of the request with a new ID.
func (r *WriteBurstReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetAddress returns the start address of the burst.
func (r *WriteBurstReq) GetAddress() uint64 {
	return r.Address
}

// GetBeatBytes returns the number of bytes each beat transfers.
func (r *WriteBurstReq) GetBeatBytes() int {
	return r.BeatBytes
}

// GetBeatCount returns the number of beats in the burst.
func (r *WriteBurstReq) GetBeatCount() int {
	return r.BeatCount
}

// GetMode returns how beat addresses advance within the burst.
func (r *WriteBurstReq) GetMode() BurstMode {
	return r.Mode
}

// GetTransID returns the transaction ID of the burst.
func (r *WriteBurstReq) GetTransID() uint64 {
	return r.TransID
}

// WriteBurstReqBuilder can build write burst requests.
type WriteBurstReqBuilder struct {
	src, dst  sim.RemotePort
	address   uint64
	beatBytes int
	beatCount int
	mode      BurstMode
	transID   uint64
	user      uint64
}

// WithSrc sets the source of the request to build.
func (b WriteBurstReqBuilder) WithSrc(src sim.RemotePort) WriteBurstReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteBurstReqBuilder) WithDst(dst sim.RemotePort) WriteBurstReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the start address of the request to build.
func (b WriteBurstReqBuilder) WithAddress(address uint64) WriteBurstReqBuilder {
	b.address = address
	return b
}

// WithBeatBytes sets the number of bytes per beat of the request to build.
func (b WriteBurstReqBuilder) WithBeatBytes(n int) WriteBurstReqBuilder {
	b.beatBytes = n
	return b
}

// WithBeatCount sets the number of beats of the request to build.
func (b WriteBurstReqBuilder) WithBeatCount(n int) WriteBurstReqBuilder {
	b.beatCount = n
	return b
}

// WithMode sets the burst mode of the request to build.
func (b WriteBurstReqBuilder) WithMode(mode BurstMode) WriteBurstReqBuilder {
	b.mode = mode
	return b
}

// WithTransID sets the transaction ID of the request to build.
func (b WriteBurstReqBuilder) WithTransID(id uint64) WriteBurstReqBuilder {
	b.transID = id
	return b
}

// WithUser sets the user tag of the request to build.
func (b WriteBurstReqBuilder) WithUser(user uint64) WriteBurstReqBuilder {
	b.user = user
	return b
}

// Build creates a new WriteBurstReq.
func (b WriteBurstReqBuilder) Build() *WriteBurstReq {
	r := &WriteBurstReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficBytes = burstReqByteOverhead
	r.Address = b.address
	r.BeatBytes = b.beatBytes
	r.BeatCount = b.beatCount
	r.Mode = b.mode
	r.TransID = b.transID
	r.User = b.user
	return r
}

// A WriteBeatMsg carries one data beat of a write burst. Strobe marks the
// bytes of Data that are actually written.
type WriteBeatMsg struct {
	sim.MsgMeta

	Data   []byte
	Strobe []bool
	Last   bool
}

// Meta returns the message meta.
func (m *WriteBeatMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the message with a new ID.
func (m *WriteBeatMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// WriteBeatMsgBuilder can build write data beats.
type WriteBeatMsgBuilder struct {
	src, dst sim.RemotePort
	data     []byte
	strobe   []bool
	last     bool
}

// WithSrc sets the source of the message to build.
func (b WriteBeatMsgBuilder) WithSrc(src sim.RemotePort) WriteBeatMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b WriteBeatMsgBuilder) WithDst(dst sim.RemotePort) WriteBeatMsgBuilder {
	b.dst = dst
	return b
}

// WithData sets the data of the message to build.
func (b WriteBeatMsgBuilder) WithData(data []byte) WriteBeatMsgBuilder {
	b.data = data
	return b
}

// WithStrobe sets the byte enable mask of the message to build.
func (b WriteBeatMsgBuilder) WithStrobe(strobe []bool) WriteBeatMsgBuilder {
	b.strobe = strobe
	return b
}

// WithLast marks the message to build as the final beat of its burst.
func (b WriteBeatMsgBuilder) WithLast(last bool) WriteBeatMsgBuilder {
	b.last = last
	return b
}

// Build creates a new WriteBeatMsg.
func (b WriteBeatMsgBuilder) Build() *WriteBeatMsg {
	m := &WriteBeatMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficBytes = len(b.data) + burstReqByteOverhead
	m.Data = b.data
	m.Strobe = b.strobe
	m.Last = b.last
	return m
}

// A ReadBurstReq requests a read burst. The slave answers with one
// ReadDataRsp per beat.
type ReadBurstReq struct {
	sim.MsgMeta

	Address   uint64
	BeatBytes int
	BeatCount int
	Mode      BurstMode
	TransID   uint64
	User      uint64
}

// Meta returns the message meta.
func (r *ReadBurstReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone creates a copy of the request with a new ID.
func (r *ReadBurstReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetAddress returns the start address of the burst.
func (r *ReadBurstReq) GetAddress() uint64 {
	return r.Address
}

// GetBeatBytes returns the number of bytes each beat transfers.
func (r *ReadBurstReq) GetBeatBytes() int {
	return r.BeatBytes
}

// GetBeatCount returns the number of beats in the burst.
func (r *ReadBurstReq) GetBeatCount() int {
	return r.BeatCount
}

// GetMode returns how beat addresses advance within the burst.
func (r *ReadBurstReq) GetMode() BurstMode {
	return r.Mode
}

// GetTransID returns the transaction ID of the burst.
func (r *ReadBurstReq) GetTransID() uint64 {
	return r.TransID
}

// ReadBurstReqBuilder can build read burst requests.
type ReadBurstReqBuilder struct {
	src, dst  sim.RemotePort
	address   uint64
	beatBytes int
	beatCount int
	mode      BurstMode
	transID   uint64
	user      uint64
}

// WithSrc sets the source of the request to build.
func (b ReadBurstReqBuilder) WithSrc(src sim.RemotePort) ReadBurstReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadBurstReqBuilder) WithDst(dst sim.RemotePort) ReadBurstReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the start address of the request to build.
func (b ReadBurstReqBuilder) WithAddress(address uint64) ReadBurstReqBuilder {
	b.address = address
	return b
}

// WithBeatBytes sets the number of bytes per beat of the request to build.
func (b ReadBurstReqBuilder) WithBeatBytes(n int) ReadBurstReqBuilder {
	b.beatBytes = n
	return b
}

// WithBeatCount sets the number of beats of the request to build.
func (b ReadBurstReqBuilder) WithBeatCount(n int) ReadBurstReqBuilder {
	b.beatCount = n
	return b
}

// WithMode sets the burst mode of the request to build.
func (b ReadBurstReqBuilder) WithMode(mode BurstMode) ReadBurstReqBuilder {
	b.mode = mode
	return b
}

// WithTransID sets the transaction ID of the request to build.
func (b ReadBurstReqBuilder) WithTransID(id uint64) ReadBurstReqBuilder {
	b.transID = id
	return b
}

// WithUser sets the user tag of the request to build.
func (b ReadBurstReqBuilder) WithUser(user uint64) ReadBurstReqBuilder {
	b.user = user
	return b
}

// Build creates a new ReadBurstReq.
func (b ReadBurstReqBuilder) Build() *ReadBurstReq {
	r := &ReadBurstReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficBytes = burstReqByteOverhead
	r.Address = b.address
	r.BeatBytes = b.beatBytes
	r.BeatCount = b.beatCount
	r.Mode = b.mode
	r.TransID = b.transID
	r.User = b.user
	return r
}

// A WriteDoneRsp completes a write burst. Resp carries the response code
// aggregated over all the bytes the burst wrote.
type WriteDoneRsp struct {
	sim.MsgMeta

	RespondTo string
	TransID   uint64
	User      uint64
	Resp      Resp
}

// Meta returns the message meta.
func (r *WriteDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone creates a copy of the response with a new ID.
func (r *WriteDoneRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request that the response is responding to.
func (r *WriteDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// WriteDoneRspBuilder can build write done responses.
type WriteDoneRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
	transID  uint64
	user     uint64
	resp     Resp
}

// WithSrc sets the source of the response to build.
func (b WriteDoneRspBuilder) WithSrc(src sim.RemotePort) WriteDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b WriteDoneRspBuilder) WithDst(dst sim.RemotePort) WriteDoneRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request that the response to build is
// replying to.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// WithTransID sets the transaction ID of the response to build.
func (b WriteDoneRspBuilder) WithTransID(id uint64) WriteDoneRspBuilder {
	b.transID = id
	return b
}

// WithUser sets the user tag of the response to build.
func (b WriteDoneRspBuilder) WithUser(user uint64) WriteDoneRspBuilder {
	b.user = user
	return b
}

// WithResp sets the response code of the response to build.
func (b WriteDoneRspBuilder) WithResp(resp Resp) WriteDoneRspBuilder {
	b.resp = resp
	return b
}

// Build creates a new WriteDoneRsp.
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficBytes = burstRspByteOverhead
	r.RespondTo = b.rspTo
	r.TransID = b.transID
	r.User = b.user
	r.Resp = b.resp
	return r
}

// A ReadDataRsp carries one data beat of a read burst. Each beat resolves
// its own response code.
type ReadDataRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      []byte
	TransID   uint64
	User      uint64
	Resp      Resp
	BeatIndex int
	Last      bool
}

// Meta returns the message meta.
func (r *ReadDataRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone creates a copy of the response with a new ID.
func (r *ReadDataRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request that the response is responding to.
func (r *ReadDataRsp) GetRspTo() string {
	return r.RespondTo
}

// ReadDataRspBuilder can build read data beats.
type ReadDataRspBuilder struct {
	src, dst  sim.RemotePort
	rspTo     string
	data      []byte
	transID   uint64
	user      uint64
	resp      Resp
	beatIndex int
	last      bool
}

// WithSrc sets the source of the response to build.
func (b ReadDataRspBuilder) WithSrc(src sim.RemotePort) ReadDataRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b ReadDataRspBuilder) WithDst(dst sim.RemotePort) ReadDataRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request that the response to build is
// replying to.
func (b ReadDataRspBuilder) WithRspTo(id string) ReadDataRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the data of the response to build.
func (b ReadDataRspBuilder) WithData(data []byte) ReadDataRspBuilder {
	b.data = data
	return b
}

// WithTransID sets the transaction ID of the response to build.
func (b ReadDataRspBuilder) WithTransID(id uint64) ReadDataRspBuilder {
	b.transID = id
	return b
}

// WithUser sets the user tag of the response to build.
func (b ReadDataRspBuilder) WithUser(user uint64) ReadDataRspBuilder {
	b.user = user
	return b
}

// WithResp sets the response code of the response to build.
func (b ReadDataRspBuilder) WithResp(resp Resp) ReadDataRspBuilder {
	b.resp = resp
	return b
}

// WithBeatIndex sets the position of the beat within its burst.
func (b ReadDataRspBuilder) WithBeatIndex(i int) ReadDataRspBuilder {
	b.beatIndex = i
	return b
}

// WithLast marks the response to build as the final beat of its burst.
func (b ReadDataRspBuilder) WithLast(last bool) ReadDataRspBuilder {
	b.last = last
	return b
}

// Build creates a new ReadDataRsp.
func (b ReadDataRspBuilder) Build() *ReadDataRsp {
	r := &ReadDataRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficBytes = len(b.data) + burstRspByteOverhead
	r.RespondTo = b.rspTo
	r.Data = b.data
	r.TransID = b.transID
	r.User = b.user
	r.Resp = b.resp
	r.BeatIndex = b.beatIndex
	r.Last = b.last
	return r
}

// A ControlMsg enables or disables the address-accept stages of a slave.
type ControlMsg struct {
	sim.MsgMeta

	Enable bool
}

// Meta returns the message meta.
func (m *ControlMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the message with a new ID.
func (m *ControlMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ControlMsgBuilder can build control messages.
type ControlMsgBuilder struct {
	src, dst sim.RemotePort
	enable   bool
}

// WithSrc sets the source of the message to build.
func (b ControlMsgBuilder) WithSrc(src sim.RemotePort) ControlMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b ControlMsgBuilder) WithDst(dst sim.RemotePort) ControlMsgBuilder {
	b.dst = dst
	return b
}

// WithEnable sets the enable bit of the message to build.
func (b ControlMsgBuilder) WithEnable(enable bool) ControlMsgBuilder {
	b.enable = enable
	return b
}

// Build creates a new ControlMsg.
func (b ControlMsgBuilder) Build() *ControlMsg {
	m := &ControlMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficBytes = controlMsgByteOverhead
	m.Enable = b.enable
	return m
}
