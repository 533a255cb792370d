package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/membus/bus"
)

var _ = Describe("ErrorMap", func() {
	It("should resolve unmapped addresses to the default response", func() {
		m := bus.NewErrorMap(bus.RespOkay, false)
		Expect(m.Peek(0x1000)).To(Equal(bus.RespOkay))

		m = bus.NewErrorMap(bus.RespSlaveErr, false)
		Expect(m.Peek(0x1000)).To(Equal(bus.RespSlaveErr))
	})

	It("should return injected codes", func() {
		m := bus.NewErrorMap(bus.RespOkay, false)
		m.Inject(0x40, bus.RespDecodeErr)

		Expect(m.Peek(0x40)).To(Equal(bus.RespDecodeErr))
		Expect(m.Peek(0x41)).To(Equal(bus.RespOkay))
	})

	It("should keep injected codes when not clearing on access", func() {
		m := bus.NewErrorMap(bus.RespOkay, false)
		m.Inject(0x40, bus.RespSlaveErr)

		Expect(m.Observe(0x40)).To(Equal(bus.RespSlaveErr))
		Expect(m.Observe(0x40)).To(Equal(bus.RespSlaveErr))
	})

	It("should reset an observed code to OKAY when clearing on access",
		func() {
			m := bus.NewErrorMap(bus.RespOkay, true)
			m.Inject(0x40, bus.RespSlaveErr)

			Expect(m.Observe(0x40)).To(Equal(bus.RespSlaveErr))
			Expect(m.Observe(0x40)).To(Equal(bus.RespOkay))
			Expect(m.Peek(0x40)).To(Equal(bus.RespOkay))
		})

	It("should not consume codes on peek", func() {
		m := bus.NewErrorMap(bus.RespOkay, true)
		m.Inject(0x40, bus.RespDecodeErr)

		Expect(m.Peek(0x40)).To(Equal(bus.RespDecodeErr))
		Expect(m.Peek(0x40)).To(Equal(bus.RespDecodeErr))
		Expect(m.Observe(0x40)).To(Equal(bus.RespDecodeErr))
		Expect(m.Peek(0x40)).To(Equal(bus.RespOkay))
	})

	It("should clear a non-OKAY default on access when clearing on access",
		func() {
			m := bus.NewErrorMap(bus.RespSlaveErr, true)

			Expect(m.Observe(0x88)).To(Equal(bus.RespSlaveErr))
			Expect(m.Observe(0x88)).To(Equal(bus.RespOkay))
		})

	It("should revert cleared addresses to the default response", func() {
		m := bus.NewErrorMap(bus.RespOkay, false)
		m.Inject(0x40, bus.RespDecodeErr)
		m.Clear(0x40)

		Expect(m.Peek(0x40)).To(Equal(bus.RespOkay))
	})
})
